package api

import "time"

// Cache key prefixes. Every hook family owns exactly one.
const (
	KeyUsers                 = "users"
	KeyUser                  = "user"
	KeyUsersSearch           = "users-search"
	KeyProfile               = "profile"
	KeyGroups                = "groups"
	KeyGroup                 = "group"
	KeyGroupsByCourse        = "groups-by-course"
	KeyPosts                 = "posts"
	KeyPost                  = "post"
	KeyGroupPosts            = "group-posts"
	KeyUserPosts             = "user-posts"
	KeyJoinRequests          = "join-requests"
	KeyJoinRequestsByStudent = "join-requests-by-student"
	KeyCourses               = "courses"
	KeyMajors                = "majors"
	KeySemesters             = "semesters"
	KeyLecturers             = "lecturers"
	KeyNotifications         = "my-notifications"
)

// Endpoint paths, relative to the client base URL.
const (
	PathUsers                 = "/users"
	PathUsersSearch           = "/users/search"
	PathUsersImport           = "/users/import"
	PathProfile               = "/users/profile"
	PathAvatar                = "/users/avatar"
	PathGroups                = "/groups"
	PathGroupsByCourse        = "/groups/course"
	PathGroupLeave            = "/groups/leave"
	PathPosts                 = "/posts"
	PathGroupPosts            = "/posts/group-post"
	PathUserPosts             = "/posts/user-post"
	PathJoinRequests          = "/join-requests"
	PathJoinRequestsByStudent = "/join-requests/find-by-student"
	PathHandleJoinRequest     = "/join-requests/handle-request"
	PathCourses               = "/courses"
	PathMajors                = "/majors"
	PathSemesters             = "/semesters"
	PathLecturers             = "/lecturers"
	PathNotifications         = "/account-notifications/my-notifications"
	PathLoginGoogle           = "/authentication/login-google"
)

// HandleJoinRequestTimeout overrides the client default for accepting or
// rejecting a join request, which the backend processes slowly.
const HandleJoinRequestTimeout = 15 * time.Second

func groupPath(groupID, action string, rest ...string) string {
	p := PathGroups + "/" + groupID + "/" + action
	for _, r := range rest {
		p += "/" + r
	}
	return p
}
