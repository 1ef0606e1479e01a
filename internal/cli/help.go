package cli

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/yaklabco/pawnls/internal/ui/pretty"
)

// helpStyles colors the parts of command help.
type helpStyles struct {
	command lipgloss.Style
	heading lipgloss.Style
	name    lipgloss.Style
	flag    lipgloss.Style
	dim     lipgloss.Style
}

func newHelpStyles(color bool) helpStyles {
	if !color {
		plain := lipgloss.NewStyle()
		return helpStyles{command: plain, heading: plain, name: plain, flag: plain, dim: plain}
	}
	return helpStyles{
		command: lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
		heading: lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		name:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		flag:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

const helpTemplate = `{{with (or .Long .Short)}}{{ trimRight . }}

{{end}}{{ heading "Usage:" }}
{{- if .Runnable}}
  {{ command .UseLine }}{{end}}
{{- if .HasAvailableSubCommands}}
  {{ command .CommandPath }} [command]{{end}}
{{- if .HasAvailableSubCommands}}

{{ heading "Commands:" }}{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{ name (rpad .Name .NamePadding) }} {{ .Short }}{{end}}{{end}}
{{- end}}
{{- if .HasAvailableLocalFlags}}

{{ heading "Flags:" }}
{{ flags .LocalFlags.FlagUsages }}
{{- end}}
{{- if .HasAvailableInheritedFlags}}

{{ heading "Global Flags:" }}
{{ flags .InheritedFlags.FlagUsages }}
{{- end}}
{{- if .HasAvailableSubCommands}}

Use "{{ command (print .CommandPath " [command] --help") }}" for more information about a command.
{{- end}}
`

// applyHelp installs styled help and usage output on cmd and its
// subcommands. The color mode is read when help is rendered, after flags
// are parsed.
func applyHelp(cmd *cobra.Command, colorMode *string, w io.Writer) {
	render := func(c *cobra.Command) error {
		styles := newHelpStyles(pretty.IsColorEnabled(*colorMode, w))
		tmpl, err := template.New("help").Funcs(template.FuncMap{
			"command":   styles.command.Render,
			"heading":   styles.heading.Render,
			"name":      styles.name.Render,
			"flags":     styles.flagUsages,
			"rpad":      rpad,
			"trimRight": func(s string) string { return strings.TrimRight(s, " \t\n") },
		}).Parse(helpTemplate)
		if err != nil {
			return fmt.Errorf("parse help template: %w", err)
		}
		return tmpl.Execute(c.OutOrStdout(), c)
	}

	cmd.SetHelpFunc(func(c *cobra.Command, _ []string) {
		if err := render(c); err != nil {
			c.PrintErrln(err)
		}
	})
	cmd.SetUsageFunc(render)
}

// flagUsages colors the flag names of a pflag usage block, leaving the
// type and description columns as pflag aligned them.
func (s helpStyles) flagUsages(usages string) string {
	lines := strings.Split(strings.TrimRight(usages, "\n"), "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		if !strings.HasPrefix(trimmed, "-") {
			continue
		}
		indent := line[:len(line)-len(trimmed)]
		end := strings.Index(trimmed, "   ")
		if end < 0 {
			end = len(trimmed)
		}
		var b strings.Builder
		for j, word := range strings.Fields(trimmed[:end]) {
			if j > 0 {
				b.WriteByte(' ')
			}
			if strings.HasPrefix(word, "-") {
				b.WriteString(s.flag.Render(strings.TrimSuffix(word, ",")))
				if strings.HasSuffix(word, ",") {
					b.WriteByte(',')
				}
				continue
			}
			b.WriteString(s.dim.Render(word))
		}
		lines[i] = indent + b.String() + trimmed[end:]
	}
	return strings.Join(lines, "\n")
}

func rpad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
