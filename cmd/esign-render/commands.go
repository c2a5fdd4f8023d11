package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arpitWebvedant/E-signature-api/certificate"
	"github.com/arpitWebvedant/E-signature-api/config"
	"github.com/arpitWebvedant/E-signature-api/recovery"
	"github.com/arpitWebvedant/E-signature-api/render"
	"github.com/arpitWebvedant/E-signature-api/signdata"
	"github.com/arpitWebvedant/E-signature-api/source"
	"github.com/arpitWebvedant/E-signature-api/store"
)

func renderCmd(g *globalFlags) *cobra.Command {
	var (
		signDataPath string
		signer       string
		outPath      string
		documentID   string
	)
	cmd := &cobra.Command{
		Use:   "render <source.pdf|source.docx>",
		Short: "Render a local document with a sign-data JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDeps(g)
			if err != nil {
				return err
			}
			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read source: %w", err)
			}
			format, err := render.ValidateSource(args[0], src)
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(signDataPath)
			if err != nil {
				return fmt.Errorf("read sign data: %w", err)
			}
			sd, err := signdata.Parse(raw)
			if err != nil {
				return err
			}
			if documentID == "" {
				documentID = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}

			out, err := d.engine(nil).Render(cmd.Context(), render.Request{
				DocumentID:  documentID,
				Source:      src,
				Format:      format,
				SignData:    sd,
				SignerEmail: signer,
			})
			if err != nil {
				return err
			}
			return writeOutput(cmd.ErrOrStderr(), outputPath(outPath, args[0]), out)
		},
	}
	cmd.Flags().StringVarP(&signDataPath, "sign-data", "s", "", "Sign-data JSON file")
	cmd.Flags().StringVar(&signer, "signer", "", "Render only this signer's copy")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output PDF path (default <source>.signed.pdf)")
	cmd.Flags().StringVar(&documentID, "document-id", "", "Document id printed on certificate pages")
	_ = cmd.MarkFlagRequired("sign-data")
	return cmd
}

func renderStoredCmd(g *globalFlags) *cobra.Command {
	var (
		signer  string
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "render-stored <document-id>",
		Short: "Render a document from the database and object store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDeps(g)
			if err != nil {
				return err
			}
			if d.cfg.Database.DSN == "" {
				return fmt.Errorf("database.dsn is required")
			}
			ctx := cmd.Context()
			pool, err := store.Connect(ctx, d.cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer pool.Close()
			st := store.New(pool)

			loader := source.Loader{}
			if d.cfg.Storage.Endpoint != "" {
				m, err := source.NewMinIO(source.MinIOConfig{
					Endpoint:  d.cfg.Storage.Endpoint,
					AccessKey: d.cfg.Storage.AccessKey,
					SecretKey: d.cfg.Storage.SecretKey,
					Bucket:    d.cfg.Storage.Bucket,
					Region:    d.cfg.Storage.Region,
					UseSSL:    d.cfg.Storage.UseSSL,
				})
				if err != nil {
					return err
				}
				loader.Fetcher = m
			}

			var stamps certificate.TimestampSource
			if d.cfg.Render.Timestamps == config.TimestampsAudit {
				stamps = st
			}
			svc := &render.Service{
				Engine:    d.engine(stamps),
				Documents: st,
				Roster:    st,
				Sources:   loader,
				Logger:    d.logger,
			}
			var out *render.Output
			if signer == "" {
				out, err = svc.RenderFinal(ctx, args[0])
			} else {
				out, err = svc.RenderForSigner(ctx, args[0], signer)
			}
			if err != nil {
				return err
			}
			return writeOutput(cmd.ErrOrStderr(), outputPath(outPath, "document-"+args[0]), out)
		},
	}
	cmd.Flags().StringVar(&signer, "signer", "", "Render only this signer's copy")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output PDF path (default document-<id>.signed.pdf)")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check that a file is an acceptable source document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}
			format, err := render.ValidateSource(args[0], data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%s)\n", args[0], format)
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write the default configuration to a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", args[0])
			}
			if err := config.DefaultConfig().SaveToFile(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}

func mergeFieldsCmd() *cobra.Command {
	var complete bool
	cmd := &cobra.Command{
		Use:   "merge-fields <existing.json> <update.json>",
		Short: "Apply a sign-data update to stored sign data and print the result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			existing, err := readSignData(args[0])
			if err != nil {
				return err
			}
			update, err := readSignData(args[1])
			if err != nil {
				return err
			}
			merged, err := signdata.Apply(existing, update, complete)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(merged)
		},
	}
	cmd.Flags().BoolVar(&complete, "complete", true, "Merge the field list instead of replacing everything")
	return cmd
}

func readSignData(path string) (signdata.SignData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return signdata.Parse(raw)
}

func outputPath(flag, base string) string {
	if flag != "" {
		return flag
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".signed.pdf"
}

func writeOutput(w io.Writer, path string, out *render.Output) error {
	if err := os.WriteFile(path, out.PDF, 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(w, "wrote %s (%d bytes, %d certificate pages, render %s)\n", path, len(out.PDF), out.CertificatePages, out.RenderID)
	printReport(w, out.Report)
	return nil
}

func printReport(w io.Writer, r recovery.Report) {
	for _, s := range r.Skipped {
		fmt.Fprintf(w, "skipped %s: %s", s.Location, s.Reason)
		if s.Err != nil {
			fmt.Fprintf(w, " (%v)", s.Err)
		}
		fmt.Fprintln(w)
	}
	for _, s := range r.Degraded {
		fmt.Fprintf(w, "degraded %s: %s\n", s.Location, s.Reason)
	}
}
