package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/s3types"
)

func newHeadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "head BUCKET KEY",
		Short: "Print object metadata",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := opts.client.HeadObject(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			printMetadata(cmd.OutOrStdout(), meta)
			return nil
		},
	}
}

func printMetadata(w io.Writer, meta *s3types.ObjectMetadata) {
	fmt.Fprintf(w, "Content-Type: %s\n", meta.ContentType)
	fmt.Fprintf(w, "Content-Length: %d\n", meta.ContentLength)
	fmt.Fprintf(w, "ETag: %s\n", meta.ETag)
	if !meta.LastModified.IsZero() {
		fmt.Fprintf(w, "Last-Modified: %s\n", meta.LastModified.UTC().Format(s3sig.DateFormat))
	}

	keys := make([]string, 0, len(meta.Metadata))
	for k := range meta.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s%s: %s\n", s3sig.MetadataPrefix, k, strings.Join(meta.Metadata[k], ","))
	}
}

func newGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get BUCKET KEY [FILE]",
		Short: "Download an object to FILE or stdout",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 3 {
				path, err := filepath.Abs(args[2])
				if err != nil {
					return err
				}
				_, err = opts.client.GetFile(cmd.Context(), args[0], args[1], path)
				return err
			}

			body, _, err := opts.client.GetObject(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			defer body.Close()
			_, err = io.Copy(cmd.OutOrStdout(), body)
			return err
		},
	}
}

func newPutCmd(opts *rootOptions) *cobra.Command {
	var (
		contentType string
		meta        []string
	)

	cmd := &cobra.Command{
		Use:   "put BUCKET KEY FILE",
		Short: "Upload a file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			metadata, err := parseMetadata(meta)
			if err != nil {
				return err
			}
			path, err := filepath.Abs(args[2])
			if err != nil {
				return err
			}

			putOpts := []s3types.PutOption{s3sig.WithMetadata(metadata)}
			if contentType != "" {
				putOpts = append(putOpts, s3sig.WithContentType(contentType))
			}

			res, err := opts.client.PutFile(cmd.Context(), args[0], args[1], path, putOpts...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d bytes %s\n", res.Key, res.Size, res.ETag)
			return nil
		},
	}

	cmd.Flags().StringVar(&contentType, "content-type", "", "content type, detected from the file when empty")
	cmd.Flags().StringArrayVarP(&meta, "meta", "m", nil, "user metadata as key=value, repeatable")
	return cmd
}

// parseMetadata turns key=value pairs into a map.
func parseMetadata(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid metadata %q, want key=value", p)
		}
		out[k] = v
	}
	return out, nil
}

func newRmCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm BUCKET KEY",
		Short: "Delete an object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.client.DeleteObject(cmd.Context(), args[0], args[1])
		},
	}
}

func newACLCmd(opts *rootOptions) *cobra.Command {
	var setFrom string

	cmd := &cobra.Command{
		Use:   "acl BUCKET [KEY]",
		Short: "Print or replace the access control policy of a bucket or object",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) == 2 {
				key = args[1]
			}

			if setFrom == "" {
				policy, err := opts.client.GetACL(cmd.Context(), args[0], key)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(policy)
				return err
			}

			policy, err := os.ReadFile(setFrom)
			if err != nil {
				return err
			}
			return opts.client.PutACL(cmd.Context(), args[0], key, policy)
		},
	}

	cmd.Flags().StringVar(&setFrom, "set", "", "replace the policy with the XML document in this file")
	return cmd
}

func newMbCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mb BUCKET",
		Short: "Create a bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.client.CreateBucket(cmd.Context(), args[0])
		},
	}
}

func newRbCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rb BUCKET",
		Short: "Delete an empty bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.client.DeleteBucket(cmd.Context(), args[0])
		},
	}
}
