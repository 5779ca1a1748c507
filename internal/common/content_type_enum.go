package common

import "strings"

// PostType is the partition a content item lives in.
type PostType string

const (
	PostTypeGeneral PostType = "general"
	PostTypeTeacher PostType = "teacher"
	PostTypeAdmin   PostType = "admin"
)

// AllPostTypes lists partitions in storage order.
var AllPostTypes = []PostType{PostTypeGeneral, PostTypeTeacher, PostTypeAdmin}

func (pt PostType) String() string {
	return string(pt)
}

func (pt PostType) IsValid() bool {
	return pt == PostTypeGeneral || pt == PostTypeTeacher || pt == PostTypeAdmin
}

// ParseFeedFilter returns the partition named by s, or "" for the merged feed.
// Unknown values select the merged feed.
func ParseFeedFilter(s string) PostType {
	pt := PostType(strings.ToLower(strings.TrimSpace(s)))
	if pt.IsValid() {
		return pt
	}
	return ""
}

// Role of a profile.
type Role string

const (
	RoleMember  Role = "member"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// ParseRole accepts the legacy "student" alias for member.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "member", "student", "":
		return RoleMember, true
	case "teacher":
		return RoleTeacher, true
	case "admin":
		return RoleAdmin, true
	}
	return "", false
}

func (r Role) String() string {
	return string(r)
}

// RequiredRole returns the role needed to publish into a partition.
func (pt PostType) RequiredRole() (Role, bool) {
	switch pt {
	case PostTypeTeacher:
		return RoleTeacher, true
	case PostTypeAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// VerifyState is a profile's approval state.
type VerifyState string

const (
	VerifyPending  VerifyState = "pending"
	VerifyApproved VerifyState = "approved"
	VerifyBlocked  VerifyState = "blocked"
)

func (v VerifyState) IsValid() bool {
	return v == VerifyPending || v == VerifyApproved || v == VerifyBlocked
}

// VoteType is the direction of a vote.
type VoteType string

const (
	VoteUp   VoteType = "upvote"
	VoteDown VoteType = "downvote"
)

func (v VoteType) IsValid() bool {
	return v == VoteUp || v == VoteDown
}

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
	"image/avif": true,
}

// IsAllowedImage reports whether an upload MIME type is accepted.
func IsAllowedImage(mimeType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return allowedImageTypes[mt]
}
