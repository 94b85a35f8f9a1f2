package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newPostsCmd(a *app) *cobra.Command {
	postsCmd := &cobra.Command{
		Use:   "posts",
		Short: "Browse and publish posts",
	}

	var category string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the feed, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			posts, err := a.client.Posts.List(cmd.Context(), category)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), posts, func(w io.Writer) {
				for _, p := range posts {
					author := "anonymous"
					if p.Author != nil {
						author = p.Author.Username
					}
					fmt.Fprintf(w, "#%d [%s %.0f%%] %s: %s\n", p.ID, p.Category, p.Confidence*100, author, p.Content)
				}
			})
		},
	}
	listCmd.Flags().StringVarP(&category, "category", "c", "", "Only show posts of this category")

	createCmd := &cobra.Command{
		Use:   "create <content>",
		Short: "Publish a post",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			post, err := a.client.Posts.Create(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), post, func(w io.Writer) {
				fmt.Fprintf(w, "Published #%d, classified as %s\n", post.ID, post.Category)
			})
		},
	}

	postsCmd.AddCommand(listCmd, createCmd)
	return postsCmd
}

func newCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the sentiment categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			categories, err := a.client.Posts.Categories(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), categories, func(w io.Writer) {
				fmt.Fprintln(w, strings.Join(categories, "\n"))
			})
		},
	}
}
