package api

import (
	"strings"
	"time"
)

// Role is the account role. The backend is not consistent about casing;
// ParseRole accepts any case and the upper-case form is canonical.
type Role string

const (
	RoleStudent   Role = "STUDENT"
	RoleLecturer  Role = "LECTURER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

// ParseRole maps s to a known role, case-insensitively.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleStudent, RoleLecturer, RoleModerator, RoleAdmin:
		return r, true
	}
	return "", false
}

// UnmarshalText normalizes the role casing when decoding.
func (r *Role) UnmarshalText(b []byte) error {
	if parsed, ok := ParseRole(string(b)); ok {
		*r = parsed
		return nil
	}
	*r = Role(b)
	return nil
}

// JoinRequestStatus is the lifecycle of a join request or invitation.
type JoinRequestStatus string

const (
	RequestPending  JoinRequestStatus = "PENDING"
	RequestApproved JoinRequestStatus = "APPROVED"
	RequestRejected JoinRequestStatus = "REJECTED"
)

// JoinRequestType distinguishes a student's request from a leader's invite.
type JoinRequestType string

const (
	RequestTypeRequest JoinRequestType = "REQUEST"
	RequestTypeInvite  JoinRequestType = "INVITE"
)

// PostType distinguishes a group looking for members from a student
// looking for a group.
type PostType string

const (
	PostTypeGroup PostType = "GROUP"
	PostTypeUser  PostType = "USER"
)

// MemberRole is a member's role inside a group.
type MemberRole string

const (
	MemberLeader MemberRole = "LEADER"
	MemberMember MemberRole = "MEMBER"
)

// User is an account as returned by the users endpoints.
type User struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	FullName    string    `json:"fullName"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	Role        Role      `json:"role"`
	StudentCode string    `json:"studentCode,omitempty"`
	MajorID     string    `json:"majorId,omitempty"`
	Major       *Major    `json:"major,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	Skills      []string  `json:"skills,omitempty"`
	GroupID     string    `json:"groupId,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// ProfilePatch is a partial profile update. Nil fields are left unchanged.
type ProfilePatch struct {
	FullName  *string   `json:"fullName,omitempty"`
	Bio       *string   `json:"bio,omitempty"`
	AvatarURL *string   `json:"avatarUrl,omitempty"`
	MajorID   *string   `json:"majorId,omitempty"`
	Skills    *[]string `json:"skills,omitempty"`
}

// Apply returns u with the patch applied.
func (p ProfilePatch) Apply(u User) User {
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
	if p.MajorID != nil {
		u.MajorID = *p.MajorID
	}
	if p.Skills != nil {
		u.Skills = append([]string(nil), (*p.Skills)...)
	}
	return u
}

// GroupMember is one seat in a group roster.
type GroupMember struct {
	UserID    string     `json:"userId"`
	FullName  string     `json:"fullName"`
	Email     string     `json:"email,omitempty"`
	AvatarURL string     `json:"avatarUrl,omitempty"`
	Role      MemberRole `json:"role"`
	JoinedAt  time.Time  `json:"joinedAt,omitempty"`
}

// Group is a student team within a course.
type Group struct {
	GroupID     string        `json:"groupId"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	CourseID    string        `json:"courseId,omitempty"`
	Course      *Course       `json:"course,omitempty"`
	LeaderID    string        `json:"leaderId,omitempty"`
	Members     []GroupMember `json:"members,omitempty"`
	MemberCount int           `json:"memberCount"`
	MaxMembers  int           `json:"maxMembers,omitempty"`
	CreatedAt   time.Time     `json:"createdAt,omitempty"`
}

// Post is a recruitment post, either a group looking for members or a student looking for a group.
type Post struct {
	PostID    string    `json:"postId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Type      PostType  `json:"type"`
	GroupID   string    `json:"groupId,omitempty"`
	Group     *Group    `json:"group,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	User      *User     `json:"user,omitempty"`
	CourseID  string    `json:"courseId,omitempty"`
	Skills    []string  `json:"skills,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// JoinRequest is an application or invitation between a student and a group.
type JoinRequest struct {
	RequestID string            `json:"requestId"`
	GroupID   string            `json:"groupId"`
	Group     *Group            `json:"group,omitempty"`
	StudentID string            `json:"studentId"`
	Student   *User             `json:"student,omitempty"`
	Message   string            `json:"message,omitempty"`
	Type      JoinRequestType   `json:"type"`
	Status    JoinRequestStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt,omitempty"`
}

// Course is a class offering within a semester.
type Course struct {
	CourseID   string    `json:"courseId"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	SemesterID string    `json:"semesterId,omitempty"`
	Lecturer   *Lecturer `json:"lecturer,omitempty"`
}

// Major is a field of study.
type Major struct {
	MajorID string `json:"majorId"`
	Code    string `json:"code"`
	Name    string `json:"name"`
}

// Semester is an academic term.
type Semester struct {
	SemesterID string    `json:"semesterId"`
	Name       string    `json:"name"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`
	IsActive   bool      `json:"isActive"`
}

// Lecturer teaches one or more courses.
type Lecturer struct {
	LecturerID string `json:"lecturerId"`
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
}

// Notification is an entry in the signed-in user's inbox.
type Notification struct {
	NotificationID string    `json:"notificationId"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	IsRead         bool      `json:"isRead"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Session is what the backend returns for a Google sign-in.
type Session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Role         Role   `json:"role"`
	User         *User  `json:"user,omitempty"`
}

// CreateGroupInput is the body of POST /groups.
type CreateGroupInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CourseID    string `json:"courseId"`
	MaxMembers  int    `json:"maxMembers,omitempty"`
}

// UpdateGroupInput is the body of PUT /groups/{id}. Zero fields are left unchanged.
type UpdateGroupInput struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	MaxMembers  int    `json:"maxMembers,omitempty"`
}

// CreatePostInput is the body for creating a group or user post.
type CreatePostInput struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	GroupID  string   `json:"groupId,omitempty"`
	CourseID string   `json:"courseId,omitempty"`
	Skills   []string `json:"skills,omitempty"`
}

// CreateJoinRequestInput is the body of POST /join-requests.
type CreateJoinRequestInput struct {
	GroupID   string          `json:"groupId"`
	StudentID string          `json:"studentId,omitempty"`
	Message   string          `json:"message,omitempty"`
	Type      JoinRequestType `json:"type"`
}

// CourseInput is the body for creating or updating a course.
type CourseInput struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	SemesterID string `json:"semesterId"`
	LecturerID string `json:"lecturerId,omitempty"`
}

// SemesterInput is the body for creating a semester.
type SemesterInput struct {
	Name      string    `json:"name"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// LecturerInput is the body for creating a lecturer.
type LecturerInput struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// ImportResult summarizes a roster upload.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}
