// Package cli implements feedctl, a command line client for the post feed
// API. Every invocation opens its own session with --email/--password.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mmhlko/post-feed/internal/client"
	"github.com/mmhlko/post-feed/internal/config"
	"github.com/mmhlko/post-feed/internal/model"
)

type options struct {
	baseURL  string
	timeout  time.Duration
	email    string
	password string
}

func NewRootCommand() *cobra.Command {
	defaults := config.Load().Client
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "feedctl",
		Short:         "Command line client for the post feed API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", defaults.BaseURL, "API base URL")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", defaults.Timeout, "HTTP request timeout")
	cmd.PersistentFlags().StringVar(&opts.email, "email", os.Getenv("FEED_EMAIL"), "account email")
	cmd.PersistentFlags().StringVar(&opts.password, "password", os.Getenv("FEED_PASSWORD"), "account password")

	cmd.AddCommand(
		newSignupCommand(opts),
		newMeCommand(opts),
		newFeedCommand(opts),
		newPostCommand(opts),
		newDeleteCommand(opts),
		newLogoutCommand(opts),
		newRefreshCheckCommand(opts),
	)
	return cmd
}

func newSignupCommand(opts *options) *cobra.Command {
	var firstName, lastName string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd, opts)
			if err != nil {
				return err
			}
			if err := c.Signup(cmd.Context(), model.SignupRequest{
				FirstName: firstName,
				LastName:  lastName,
				Email:     opts.email,
				Password:  opts.password,
			}); err != nil {
				return err
			}
			me, err := c.Me(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), me)
		},
	}
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	return cmd
}

func newMeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the logged in profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := login(cmd, opts)
			if err != nil {
				return err
			}
			me, err := c.Me(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), me)
		},
	}
}

func newFeedCommand(opts *options) *cobra.Command {
	q := model.PostListQuery{}
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "List posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := login(cmd, opts)
			if err != nil {
				return err
			}
			list, err := c.ListPosts(cmd.Context(), q)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		},
	}
	cmd.Flags().IntVar(&q.Limit, "limit", 5, "page size")
	cmd.Flags().IntVar(&q.Offset, "offset", 0, "page offset")
	cmd.Flags().StringVar(&q.Sort, "sort", "desc", "sort by creation time: asc or desc")
	return cmd
}

func newPostCommand(opts *options) *cobra.Command {
	var images []string
	cmd := &cobra.Command{
		Use:   "post [text]",
		Short: "Publish a post with optional images",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			if len(args) == 1 {
				text = args[0]
			}
			uploads, err := readImages(images)
			if err != nil {
				return err
			}
			c, err := login(cmd, opts)
			if err != nil {
				return err
			}
			post, err := c.CreatePost(cmd.Context(), text, uploads)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), post)
		},
	}
	cmd.Flags().StringSliceVar(&images, "image", nil, "image file to attach (repeatable)")
	return cmd
}

func newDeleteCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <post-id>",
		Short: "Delete one of your posts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := login(cmd, opts)
			if err != nil {
				return err
			}
			if err := c.DeletePost(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted", args[0])
			return nil
		},
	}
}

func newLogoutCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log in and end the session on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := login(cmd, opts)
			if err != nil {
				return err
			}
			if err := c.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

// newRefreshCheckCommand drops the access token and fires concurrent
// requests, so the whole batch goes through a single refresh.
func newRefreshCheckCommand(opts *options) *cobra.Command {
	var requests int
	cmd := &cobra.Command{
		Use:   "refresh-check",
		Short: "Exercise silent token refresh with concurrent requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			if requests <= 0 {
				return errors.New("--requests must be positive")
			}
			c, err := login(cmd, opts)
			if err != nil {
				return err
			}
			before := c.AccessToken()
			c.SetAccessToken("invalidated")

			g, ctx := errgroup.WithContext(cmd.Context())
			for i := 0; i < requests; i++ {
				g.Go(func() error {
					_, err := c.ListPosts(ctx, model.PostListQuery{Limit: 1})
					return err
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d requests succeeded, token rotated: %t\n", requests, c.AccessToken() != before)
			return nil
		},
	}
	cmd.Flags().IntVar(&requests, "requests", 10, "number of concurrent requests")
	return cmd
}

func newClient(cmd *cobra.Command, opts *options) (*client.APIClient, error) {
	return client.NewAPIClient(
		config.ClientConfig{BaseURL: opts.baseURL, Timeout: opts.timeout},
		client.WithClientLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))),
		client.OnSessionExpired(func(err error) {
			fmt.Fprintln(cmd.ErrOrStderr(), "session expired, log in again:", err)
		}),
	)
}

func login(cmd *cobra.Command, opts *options) (*client.APIClient, error) {
	if opts.email == "" || opts.password == "" {
		return nil, errors.New("--email and --password are required")
	}
	c, err := newClient(cmd, opts)
	if err != nil {
		return nil, err
	}
	if err := c.Login(cmd.Context(), opts.email, opts.password); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return c, nil
}

func readImages(paths []string) ([]model.Upload, error) {
	uploads := make([]model.Upload, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read image: %w", err)
		}
		uploads = append(uploads, model.Upload{
			Filename:    filepath.Base(path),
			ContentType: mime.TypeByExtension(filepath.Ext(path)),
			Data:        data,
		})
	}
	return uploads, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
