// Package api binds the team-up REST endpoints to query hooks.
//
// Generic families (users, groups, posts, courses...) are produced by the
// query factory. Operations whose effects span several families are written
// out in mutations.go with their full invalidation sets.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/huykn/teamup-client/cache"
	"github.com/huykn/teamup-client/httpclient"
	"github.com/huykn/teamup-client/query"
)

// API holds one hook per endpoint family.
type API struct {
	f *query.Factory

	Users        *query.List[[]User]
	User         *query.ByID[User]
	SearchUsers  *query.Search[[]User]
	Profile      *query.List[User]
	UpdateUser   *query.Update[ProfilePatch, User]
	DeleteUser   *query.Delete[User]
	ImportUsers  *query.Upload[ImportResult]
	UploadAvatar *query.Upload[User]

	Groups         *query.Filtered[[]Group]
	Group          *query.ByID[Group]
	GroupsByCourse *query.ByID[[]Group]
	CreateGroup    *query.Create[CreateGroupInput, Group]
	UpdateGroup    *query.Update[UpdateGroupInput, Group]
	DeleteGroup    *query.Delete[Group]

	Posts           *query.Paged[Post]
	Post            *query.ByID[Post]
	GroupPosts      *query.Filtered[[]Post]
	UserPosts       *query.Filtered[[]Post]
	CreateGroupPost *query.Create[CreatePostInput, Post]
	CreateUserPost  *query.Create[CreatePostInput, Post]
	UpdatePost      *query.Update[CreatePostInput, Post]
	DeletePost      *query.Delete[Post]

	JoinRequests          *query.List[[]JoinRequest]
	JoinRequestsByStudent *query.ByID[[]JoinRequest]
	CreateJoinRequest     *query.Create[CreateJoinRequestInput, JoinRequest]
	DeleteJoinRequest     *query.Delete[JoinRequest]

	Courses        *query.Filtered[[]Course]
	Course         *query.ByID[Course]
	CreateCourse   *query.Create[CourseInput, Course]
	UpdateCourse   *query.Update[CourseInput, Course]
	DeleteCourse   *query.Delete[Course]
	Majors         *query.List[[]Major]
	Semesters      *query.List[[]Semester]
	CreateSemester *query.Create[SemesterInput, Semester]
	Lecturers      *query.List[[]Lecturer]
	CreateLecturer *query.Create[LecturerInput, Lecturer]
	Notifications  *query.List[[]Notification]
}

// Extra invalidation for the generic write hooks. A write also makes stale
// every other family that embeds the changed entity.
var (
	userWrites = []query.MutationOption{
		query.InvalidateByID(KeyUser),
		query.AlsoInvalidate(
			cache.Key{KeyUsersSearch}, cache.Key{KeyProfile},
			cache.Key{KeyGroups}, cache.Key{KeyGroup}, cache.Key{KeyGroupsByCourse},
			cache.Key{KeyPosts}, cache.Key{KeyPost}, cache.Key{KeyUserPosts},
			cache.Key{KeyJoinRequests}, cache.Key{KeyJoinRequestsByStudent},
		),
	}
	avatarWrites = []query.MutationOption{
		query.AlsoInvalidate(
			cache.Key{KeyUsers}, cache.Key{KeyUser}, cache.Key{KeyUsersSearch},
			cache.Key{KeyGroup}, cache.Key{KeyPosts}, cache.Key{KeyPost}, cache.Key{KeyUserPosts},
		),
	}
	groupWrites = []query.MutationOption{
		query.InvalidateByID(KeyGroup),
		query.AlsoInvalidate(
			cache.Key{KeyGroupsByCourse},
			cache.Key{KeyPosts}, cache.Key{KeyPost}, cache.Key{KeyGroupPosts},
			cache.Key{KeyJoinRequests}, cache.Key{KeyJoinRequestsByStudent},
		),
	}
	// Deleting a group also frees its members.
	groupDeletes = append([]query.MutationOption{
		query.AlsoInvalidate(cache.Key{KeyProfile}, cache.Key{KeyUser}),
	}, groupWrites...)
	postWrites = []query.MutationOption{
		query.InvalidateByID(KeyPost),
		query.AlsoInvalidate(cache.Key{KeyGroupPosts}, cache.Key{KeyUserPosts}),
	}
	requestWrites = []query.MutationOption{
		query.AlsoInvalidate(cache.Key{KeyJoinRequestsByStudent}),
	}
	courseWrites = []query.MutationOption{
		query.AlsoInvalidate(cache.Key{KeyGroups}, cache.Key{KeyGroup}, cache.Key{KeyGroupsByCourse}),
	}
)

// New builds every hook on f. Reference data that rarely changes gets a
// longer stale time than the defaults.
func New(f *query.Factory) *API {
	const referenceStale = 30 * time.Minute

	return &API{
		f: f,

		Users:        query.NewList[[]User](f, KeyUsers, PathUsers),
		User:         query.NewByID[User](f, KeyUser, PathUsers),
		SearchUsers:  query.NewSearch[[]User](f, KeyUsersSearch, PathUsersSearch),
		Profile:      query.NewList[User](f, KeyProfile, PathProfile),
		UpdateUser:   query.NewUpdate[ProfilePatch, User](f, KeyUsers, PathUsers, userWrites...),
		DeleteUser:   query.NewDelete[User](f, KeyUsers, PathUsers, userWrites...),
		ImportUsers:  query.NewUpload[ImportResult](f, KeyUsers, PathUsersImport, query.AlsoInvalidate(cache.Key{KeyUsersSearch})),
		UploadAvatar: query.NewUpload[User](f, KeyProfile, PathAvatar, avatarWrites...),

		Groups:         query.NewFiltered[[]Group](f, KeyGroups, PathGroups),
		Group:          query.NewByID[Group](f, KeyGroup, PathGroups),
		GroupsByCourse: query.NewByID[[]Group](f, KeyGroupsByCourse, PathGroupsByCourse),
		CreateGroup:    query.NewCreate[CreateGroupInput, Group](f, KeyGroups, PathGroups, query.AlsoInvalidate(cache.Key{KeyGroupsByCourse}, cache.Key{KeyProfile})),
		UpdateGroup:    query.NewUpdate[UpdateGroupInput, Group](f, KeyGroups, PathGroups, groupWrites...),
		DeleteGroup:    query.NewDelete[Group](f, KeyGroups, PathGroups, groupDeletes...),

		Posts:           query.NewPaged[Post](f, KeyPosts, PathPosts),
		Post:            query.NewByID[Post](f, KeyPost, PathPosts),
		GroupPosts:      query.NewFiltered[[]Post](f, KeyGroupPosts, PathGroupPosts),
		UserPosts:       query.NewFiltered[[]Post](f, KeyUserPosts, PathUserPosts),
		CreateGroupPost: query.NewCreate[CreatePostInput, Post](f, KeyGroupPosts, PathGroupPosts, query.AlsoInvalidate(cache.Key{KeyPosts})),
		CreateUserPost:  query.NewCreate[CreatePostInput, Post](f, KeyUserPosts, PathUserPosts, query.AlsoInvalidate(cache.Key{KeyPosts})),
		UpdatePost:      query.NewUpdate[CreatePostInput, Post](f, KeyPosts, PathPosts, postWrites...),
		DeletePost:      query.NewDelete[Post](f, KeyPosts, PathPosts, postWrites...),

		JoinRequests:          query.NewList[[]JoinRequest](f, KeyJoinRequests, PathJoinRequests),
		JoinRequestsByStudent: query.NewByID[[]JoinRequest](f, KeyJoinRequestsByStudent, PathJoinRequestsByStudent),
		CreateJoinRequest:     query.NewCreate[CreateJoinRequestInput, JoinRequest](f, KeyJoinRequests, PathJoinRequests, requestWrites...),
		DeleteJoinRequest:     query.NewDelete[JoinRequest](f, KeyJoinRequests, PathJoinRequests, requestWrites...),

		Courses:        query.NewFiltered[[]Course](f, KeyCourses, PathCourses),
		Course:         query.NewByID[Course](f, KeyCourses, PathCourses),
		CreateCourse:   query.NewCreate[CourseInput, Course](f, KeyCourses, PathCourses),
		UpdateCourse:   query.NewUpdate[CourseInput, Course](f, KeyCourses, PathCourses, courseWrites...),
		DeleteCourse:   query.NewDelete[Course](f, KeyCourses, PathCourses, courseWrites...),
		Majors:         query.NewList[[]Major](f, KeyMajors, PathMajors, query.WithStaleTime(referenceStale)),
		Semesters:      query.NewList[[]Semester](f, KeySemesters, PathSemesters, query.WithStaleTime(referenceStale)),
		CreateSemester: query.NewCreate[SemesterInput, Semester](f, KeySemesters, PathSemesters),
		Lecturers:      query.NewList[[]Lecturer](f, KeyLecturers, PathLecturers),
		CreateLecturer: query.NewCreate[LecturerInput, Lecturer](f, KeyLecturers, PathLecturers),
		Notifications:  query.NewList[[]Notification](f, KeyNotifications, PathNotifications),
	}
}

// Factory returns the factory the hooks were built on.
func (a *API) Factory() *query.Factory {
	return a.f
}

// LoginWithGoogle exchanges a Google ID token for a team-up session.
func (a *API) LoginWithGoogle(ctx context.Context, idToken string) (Session, error) {
	return query.Call[Session](ctx, a.f.Requester(), httpclient.Request{
		Method: http.MethodPost,
		Path:   PathLoginGoogle,
		Body:   map[string]string{"token": idToken},
	})
}

// FetchProfile reads the signed-in user's profile without going through the
// cache.
func (a *API) FetchProfile(ctx context.Context) (User, error) {
	return query.Get[User](ctx, a.f.Requester(), PathProfile, nil)
}

// SaveProfile sends a partial profile update and returns the stored profile.
func (a *API) SaveProfile(ctx context.Context, patch ProfilePatch) (User, error) {
	return query.Call[User](ctx, a.f.Requester(), httpclient.Request{
		Method: http.MethodPut,
		Path:   PathProfile,
		Body:   patch,
	})
}
