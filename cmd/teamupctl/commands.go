package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/huykn/teamup-client/api"
	"github.com/huykn/teamup-client/view"
)

func newLoginCmd(a *app) *cobra.Command {
	var access, refresh string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an access token and verify it against the profile endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if access == "" {
				return errors.New("--token is required")
			}
			if err := a.client.Tokens.SetTokens(access, refresh); err != nil {
				return err
			}
			if err := a.client.Profile.FetchProfile(cmd.Context()); err != nil {
				a.client.Tokens.ClearTokens()
				return fmt.Errorf("verify token: %w", err)
			}
			u := a.client.Profile.State().Data
			fmt.Fprintf(a.out, "Signed in as %s (%s)\n", u.FullName, u.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&access, "token", "", "access token")
	cmd.Flags().StringVar(&refresh, "refresh", "", "refresh token")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored tokens and cached data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.client.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			if err := a.client.Profile.FetchProfile(cmd.Context()); err != nil {
				return err
			}
			u := a.client.Profile.State().Data
			return a.print(u, func(w io.Writer) {
				fmt.Fprintf(w, "ID\t%s\n", u.UserID)
				fmt.Fprintf(w, "Name\t%s\n", u.FullName)
				fmt.Fprintf(w, "Email\t%s\n", u.Email)
				fmt.Fprintf(w, "Role\t%s\n", u.Role)
				if u.StudentCode != "" {
					fmt.Fprintf(w, "Student code\t%s\n", u.StudentCode)
				}
				if u.Major != nil {
					fmt.Fprintf(w, "Major\t%s\n", u.Major.Name)
				}
				if len(u.Skills) > 0 {
					fmt.Fprintf(w, "Skills\t%s\n", strings.Join(u.Skills, ", "))
				}
			})
		},
	}
}

func newGroupsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List and manage groups",
	}

	var course string
	list := &cobra.Command{
		Use:   "list",
		Short: "List groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			groups, err := a.client.API.Groups.Use(map[string]any{"courseId": course}).Fetch(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(groups, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tNAME\tCOURSE\tMEMBERS")
				for _, g := range groups {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", g.GroupID, g.Name, courseCode(g), memberCount(g))
				}
			})
		},
	}
	list.Flags().StringVar(&course, "course", "", "only groups of this course")

	get := &cobra.Command{
		Use:   "get <group-id>",
		Short: "Show a group and its members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.client.API.Group.Use(args[0]).Fetch(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(g, func(w io.Writer) {
				fmt.Fprintf(w, "ID\t%s\n", g.GroupID)
				fmt.Fprintf(w, "Name\t%s\n", g.Name)
				fmt.Fprintf(w, "Course\t%s\n", courseCode(g))
				fmt.Fprintf(w, "Members\t%s\n", memberCount(g))
				for _, m := range g.Members {
					fmt.Fprintf(w, "\t%s\t%s\t%s\n", m.UserID, m.FullName, view.MembershipOf(g, m.UserID))
				}
			})
		},
	}

	leave := &cobra.Command{
		Use:   "leave <group-id>",
		Short: "Leave a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			if _, err := a.client.API.LeaveGroup().Mutate(cmd.Context(), api.LeaveGroupInput{GroupID: args[0]}); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Left group %s\n", args[0])
			return nil
		},
	}

	kick := &cobra.Command{
		Use:   "kick <group-id> <member-id>",
		Short: "Remove a member from a group you lead",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			if _, err := a.client.API.KickMember(args[0]).Mutate(cmd.Context(), args[1]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Removed %s from group %s\n", args[1], args[0])
			return nil
		},
	}

	cmd.AddCommand(list, get, leave, kick)
	return cmd
}

func newPostsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Browse recruitment posts",
	}

	var page, size, limit int
	hot := &cobra.Command{
		Use:   "hot",
		Short: "Show the newest posts, larger groups first on ties",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.client.API.Posts.Use(1, limit, nil).Fetch(cmd.Context())
			if err != nil {
				return err
			}
			p := view.HotPosts(res.Data, page, size)
			return a.print(p, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tTITLE\tTYPE\tGROUP\tCREATED")
				for _, post := range p.Items {
					group := "-"
					if post.Group != nil {
						group = post.Group.Name
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", post.PostID, post.Title, post.Type, group, formatDate(post.CreatedAt))
				}
				fmt.Fprintf(w, "\npage %d of %d (%d posts)\n", p.Page, p.TotalPages, p.Total)
			})
		},
	}
	hot.Flags().IntVar(&page, "page", 1, "page to show")
	hot.Flags().IntVar(&size, "size", view.DefaultPageSize, "posts per page")
	hot.Flags().IntVar(&limit, "limit", 100, "posts fetched from the server")

	cmd.AddCommand(hot)
	return cmd
}

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Find students",
	}

	var name, major string
	search := &cobra.Command{
		Use:   "search",
		Short: "Search users by name or major",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := a.client.API.SearchUsers.Use(map[string]any{"name": name, "majorId": major})
			if !q.Enabled() {
				return errors.New("give --name or --major")
			}
			users, err := q.Fetch(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(users, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tSKILLS")
				for _, u := range users {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.UserID, u.FullName, u.Email, u.Role, strings.Join(u.Skills, ","))
				}
			})
		},
	}
	search.Flags().StringVar(&name, "name", "", "name contains")
	search.Flags().StringVar(&major, "major", "", "major ID")

	cmd.AddCommand(search)
	return cmd
}

func newRequestsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "Join requests",
	}

	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List your join requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			if err := a.client.Profile.FetchProfile(cmd.Context()); err != nil {
				return err
			}
			v := view.NewPendingRequestView(a.client.Profile, a.client.API)
			reqs, err := v.Query().Fetch(cmd.Context())
			if err != nil {
				return err
			}
			if !all {
				reqs = view.PendingRequests(reqs)
			}
			return a.print(reqs, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tGROUP\tTYPE\tSTATUS")
				for _, r := range reqs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.RequestID, r.GroupID, r.Type, view.JoinRequestBadge(r.Status).Label)
				}
			})
		},
	}
	list.Flags().BoolVar(&all, "all", false, "include decided requests")

	var accept, reject bool
	var groupID, studentID string
	handle := &cobra.Command{
		Use:   "handle <request-id>",
		Short: "Accept or reject a join request to a group you lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if accept == reject {
				return errors.New("give exactly one of --accept or --reject")
			}
			if err := a.requireSession(); err != nil {
				return err
			}
			action := api.ActionReject
			if accept {
				action = api.ActionAccept
			}
			r, err := a.client.API.HandleJoinRequest().Mutate(cmd.Context(), api.HandleJoinRequestInput{
				RequestID: args[0],
				GroupID:   groupID,
				StudentID: studentID,
				Action:    action,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Request %s: %s\n", args[0], view.JoinRequestBadge(r.Status).Label)
			return nil
		},
	}
	handle.Flags().BoolVar(&accept, "accept", false, "accept the request")
	handle.Flags().BoolVar(&reject, "reject", false, "reject the request")
	handle.Flags().StringVar(&groupID, "group", "", "group the request targets")
	handle.Flags().StringVar(&studentID, "student", "", "student who asked to join")

	cmd.AddCommand(list, handle)
	return cmd
}

func courseCode(g api.Group) string {
	if g.Course != nil && g.Course.Code != "" {
		return g.Course.Code
	}
	if g.CourseID != "" {
		return g.CourseID
	}
	return "-"
}

func memberCount(g api.Group) string {
	n := g.MemberCount
	if n == 0 {
		n = len(g.Members)
	}
	if g.MaxMembers > 0 {
		return fmt.Sprintf("%d/%d", n, g.MaxMembers)
	}
	return fmt.Sprint(n)
}
