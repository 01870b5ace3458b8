package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBooksCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "Manage books on the Bookalope server",
	}

	cmd.AddCommand(newBooksListCmd(opts))
	cmd.AddCommand(newBooksCreateCmd(opts))
	cmd.AddCommand(newBooksDeleteCmd(opts))

	return cmd
}

func newBooksListCmd(opts *cliOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the account's books and their bookflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := resolveToken(opts)
			if err != nil {
				return err
			}

			cli := buildClient(token, opts)
			books, err := cli.Books(cmd.Context())
			if err != nil {
				return err
			}

			if output != "" {
				type bookflowInfo struct {
					ID   string `json:"id"`
					Name string `json:"name"`
					Step string `json:"step"`
				}
				type bookInfo struct {
					ID        string         `json:"id"`
					Name      string         `json:"name"`
					Bookflows []bookflowInfo `json:"bookflows"`
				}
				infos := make([]bookInfo, 0, len(books))
				for _, book := range books {
					info := bookInfo{ID: book.ID, Name: book.Name}
					for _, bookflow := range book.Bookflows {
						info.Bookflows = append(info.Bookflows, bookflowInfo{
							ID:   bookflow.ID,
							Name: bookflow.Name,
							Step: string(bookflow.Step),
						})
					}
					infos = append(infos, info)
				}
				return writeJSON(output, infos)
			}

			for _, book := range books {
				if err := printOut(cmd, "%s  %s (%d bookflows)", book.ID, book.Name, len(book.Bookflows)); err != nil {
					return err
				}
				for _, bookflow := range book.Bookflows {
					if err := printOut(cmd, "  %s  %s step=%s", bookflow.ID, bookflow.Name, bookflow.Step); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the book list as JSON to this path")

	return cmd
}

func newBooksCreateCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new book with one empty bookflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := resolveToken(opts)
			if err != nil {
				return err
			}

			cli := buildClient(token, opts)
			book, err := cli.CreateBook(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if err := printOut(cmd, "Created book %s (%s)", book.ID, book.Name); err != nil {
				return err
			}
			for _, bookflow := range book.Bookflows {
				if err := printOut(cmd, "  bookflow %s step=%s", bookflow.ID, bookflow.Step); err != nil {
					return err
				}
			}
			return nil
		},
	}

	return cmd
}

func newBooksDeleteCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <book-id>",
		Short: "Delete a book from the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := resolveToken(opts)
			if err != nil {
				return err
			}

			cli := buildClient(token, opts)
			book, err := cli.NewBook(args[0])
			if err != nil {
				return err
			}
			if err := book.Delete(cmd.Context()); err != nil {
				return fmt.Errorf("delete book %s: %w", args[0], err)
			}
			return printOut(cmd, "Deleted book %s", args[0])
		},
	}

	return cmd
}
