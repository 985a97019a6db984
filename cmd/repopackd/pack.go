package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/repopackd/internal/fetch"
	"github.com/fyrsmithlabs/repopackd/internal/job"
	"github.com/fyrsmithlabs/repopackd/internal/packer"
	"github.com/fyrsmithlabs/repopackd/internal/scan"
)

var (
	packOutput   string
	packStyle    string
	packExclude  []string
	packThreshMB float64
)

var (
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
	percentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Width(7).Align(lipgloss.Right)
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("51"))
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	okStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
)

func init() {
	packCmd.Flags().StringVarP(&packOutput, "output", "o", "", "write the artifact to this file instead of stdout")
	packCmd.Flags().StringVar(&packStyle, "style", "", "output style: markdown or xml")
	packCmd.Flags().StringSliceVarP(&packExclude, "exclude", "e", nil, "additional exclusion glob (repeatable)")
	packCmd.Flags().Float64Var(&packThreshMB, "threshold-mb", 0, "size threshold in MB for the default exclusion policy")
}

var packCmd = &cobra.Command{
	Use:   "pack <repository-url>",
	Short: "Pack one repository locally",
	Long: `Fetch and pack one repository, printing progress to stderr.

When the exclusion step is reached the largest files are listed. Enter the
numbers or paths to exclude separated by spaces or commas, "none" to keep
everything, or an empty line to exclude files over the size threshold.

Examples:
  repopackd pack https://github.com/owner/repo -o repo.md
  repopackd pack https://github.com/owner/repo --style xml -e 'docs/**'`,
	Args: cobra.ExactArgs(1),
	RunE: runPack,
}

func runPack(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	req := job.Request{SourceURL: args[0], ExcludeGlobs: packExclude, OutputStyle: packStyle}
	if packThreshMB > 0 {
		req.SizeThresholdMB = &packThreshMB
	}

	j, err := a.orch.Start(ctx, req)
	if err != nil {
		return err
	}

	final, err := follow(ctx, j, cmd.ErrOrStderr(), bufio.NewReader(cmd.InOrStdin()))
	if err != nil {
		return err
	}
	if final.Error != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render("failed: "+final.Error))
		return errors.New(final.Error)
	}
	printSummary(cmd.ErrOrStderr(), final.Summary)

	if packOutput == "" {
		_, err = io.WriteString(cmd.OutOrStdout(), final.Output)
		return err
	}
	if err := os.WriteFile(packOutput, []byte(final.Output), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", packOutput, err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), okStyle.Render(fmt.Sprintf("wrote %s (%s)", packOutput, fetch.FormatMB(final.OutputSize))))
	return nil
}

// follow prints j's progress to w, answers the selection from in, and
// returns the terminal message.
func follow(ctx context.Context, j *job.Job, w io.Writer, in *bufio.Reader) (job.Message, error) {
	for {
		m, err := j.Next(ctx)
		if err != nil {
			return job.Message{}, err
		}
		fmt.Fprintf(w, "%s %s\n", percentStyle.Render(fmt.Sprintf("%.1f%%", m.Progress)), progressStyle.Render(m.HumanFriendlyProgress))
		if m.Complete {
			return m, nil
		}
		if !m.WaitingForFileSelection {
			continue
		}

		printCandidates(w, m.LargeFiles)
		fmt.Fprint(w, "exclude> ")
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return job.Message{}, err
		}
		selected, err := parseSelection(line, m.LargeFiles)
		if err != nil {
			fmt.Fprintln(w, errorStyle.Render(err.Error()+"; using the default policy"))
			selected = nil
		}
		if err := j.Reply(job.Reply{SelectedFiles: selected}); err != nil {
			fmt.Fprintln(w, errorStyle.Render(err.Error()))
		}
	}
}

func printSummary(w io.Writer, s *job.Summary) {
	if s == nil {
		return
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Packed %d files, %d chars", s.TotalFiles, s.TotalChars)))
	for i, f := range s.TopFiles {
		fmt.Fprintf(w, "  %2d) %10d chars  %s\n", i+1, f.Chars, f.Path)
	}
	printSuspicious(w, s.SuspiciousFiles)
}

func printSuspicious(w io.Writer, files []packer.SuspiciousFile) {
	if len(files) == 0 {
		return
	}
	fmt.Fprintln(w, errorStyle.Render("Withheld by security check"))
	for _, f := range files {
		fmt.Fprintf(w, "  %s (%s)\n", f.Path, strings.Join(f.Rules, ", "))
	}
}

func printCandidates(w io.Writer, files []scan.CandidateFile) {
	fmt.Fprintln(w, headerStyle.Render("Largest files"))
	for i, f := range files {
		fmt.Fprintf(w, "  %2d) %10s  %s\n", i+1, fetch.FormatMB(f.Size), f.Path)
	}
}

// parseSelection maps a line of numbers or paths to the files to exclude.
// A blank line returns nil (default policy); "none" an empty list.
func parseSelection(line string, files []scan.CandidateFile) ([]string, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) == 0 {
		return nil, nil
	}
	if len(fields) == 1 && strings.EqualFold(fields[0], "none") {
		return []string{}, nil
	}

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if n, err := strconv.Atoi(f); err == nil {
			if n < 1 || n > len(files) {
				return nil, fmt.Errorf("no file numbered %d", n)
			}
			out = append(out, files[n-1].Path)
			continue
		}
		out = append(out, f)
	}
	return out, nil
}
