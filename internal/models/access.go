package models

// AccessLevel określa, co odbiorca może zrobić z węzłem.
// Poziomy są uporządkowane: read < download < edit.
type AccessLevel string

const (
	AccessRead     AccessLevel = "read"
	AccessDownload AccessLevel = "download"
	AccessEdit     AccessLevel = "edit"
)

var accessRank = map[AccessLevel]int{
	AccessRead:     1,
	AccessDownload: 2,
	AccessEdit:     3,
}

// IsValid reports whether l is one of the three known levels.
func (l AccessLevel) IsValid() bool {
	_, ok := accessRank[l]
	return ok
}

// AtLeast reports whether l grants at least the capabilities of min.
func (l AccessLevel) AtLeast(min AccessLevel) bool {
	return accessRank[l] >= accessRank[min]
}

// LinkVisibility określa, kto może skorzystać z linku udostępniającego.
type LinkVisibility string

const (
	LinkPublic     LinkVisibility = "public"
	LinkRestricted LinkVisibility = "restricted"
)

func (v LinkVisibility) IsValid() bool {
	return v == LinkPublic || v == LinkRestricted
}
