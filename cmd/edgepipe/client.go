package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/birdayz/edgepipe/control"
	"github.com/birdayz/edgepipe/edoc"
)

func newClient() *control.Client {
	return control.NewClient(serverAddr, timeout)
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the pipeline of a running server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := newClient().Start(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), control.ReplyDone)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the pipeline of a running server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := newClient().Stop(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), control.ReplyDone)
		return nil
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that a server is running",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		reply, err := newClient().Ping(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	},
}

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the pipeline of a running server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		doc, err := newClient().Export(cmd.Context())
		if err != nil {
			return err
		}
		if exportOut != "" {
			return edoc.WriteFile(exportOut, doc)
		}
		b, err := edoc.Marshal(doc)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return err
	},
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace the pipeline of a running server with a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := edoc.ReadFile(args[0])
		if err != nil {
			return err
		}
		if err := newClient().Import(cmd.Context(), doc); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), control.ReplyDone)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "Write the document to a file instead of stdout")
}
