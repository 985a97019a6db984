package packer

import (
	"sort"
	"strings"
)

type packedFile struct {
	path    string
	content string
}

const summaryPurpose = "This file is a merged representation of the repository, combining its text files into a single document for automated analysis, code review and AI systems."

const summaryNotes = `- Files matching .gitignore, default ignore patterns or custom exclusions are left out.
- Binary files are not included.
- Files flagged by the security check are not included.`

// tree renders the directory structure of paths, which must be sorted.
func tree(paths []string) string {
	type node struct {
		children map[string]*node
		isFile   bool
	}
	root := &node{children: map[string]*node{}}
	for _, p := range paths {
		n := root
		parts := strings.Split(p, "/")
		for i, part := range parts {
			child, ok := n.children[part]
			if !ok {
				child = &node{children: map[string]*node{}}
				n.children[part] = child
			}
			if i == len(parts)-1 {
				child.isFile = true
			}
			n = child
		}
	}

	var b strings.Builder
	var walk func(n *node, depth int)
	walk = func(n *node, depth int) {
		names := make([]string, 0, len(n.children))
		for name := range n.children {
			names = append(names, name)
		}
		// Directories first, then files, each alphabetical.
		sort.Slice(names, func(i, j int) bool {
			di, dj := !n.children[names[i]].isFile, !n.children[names[j]].isFile
			if di != dj {
				return di
			}
			return names[i] < names[j]
		})
		for _, name := range names {
			child := n.children[name]
			b.WriteString(strings.Repeat("  ", depth))
			b.WriteString(name)
			if !child.isFile {
				b.WriteString("/")
			}
			b.WriteString("\n")
			walk(child, depth+1)
		}
	}
	walk(root, 0)
	return strings.TrimSuffix(b.String(), "\n")
}

func renderMarkdown(files []packedFile, cfg Config) string {
	var b strings.Builder
	b.WriteString(summaryPurpose + "\n\n")
	b.WriteString("# File Summary\n\n")
	writeHeaderMarkdown(&b, cfg.Header)
	b.WriteString("## Notes\n" + summaryNotes + "\n\n")

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	b.WriteString("# Repository Structure\n```\n" + tree(paths) + "\n```\n\n")

	b.WriteString("# Repository Files\n")
	for _, f := range files {
		fc := fence(f.content)
		b.WriteString("\n## File: " + f.path + "\n")
		b.WriteString(fc + language(f.path) + "\n" + f.content + "\n" + fc + "\n")
	}
	return b.String()
}

func writeHeaderMarkdown(b *strings.Builder, h Header) {
	if h.Source == "" && h.Commit == "" {
		return
	}
	b.WriteString("## Source\n")
	if h.Source != "" {
		b.WriteString("- Repository: " + h.Source + "\n")
	}
	if h.Branch != "" {
		b.WriteString("- Branch: " + h.Branch + "\n")
	}
	if h.Commit != "" {
		b.WriteString("- Commit: " + h.Commit + "\n")
	}
	b.WriteString("\n")
}

func renderXML(files []packedFile, cfg Config) string {
	var b strings.Builder
	b.WriteString(summaryPurpose + "\n\n")
	b.WriteString("<file_summary>\n")
	if h := cfg.Header; h.Source != "" || h.Commit != "" {
		b.WriteString("<source>\n")
		if h.Source != "" {
			b.WriteString("<repository>" + escape(h.Source) + "</repository>\n")
		}
		if h.Branch != "" {
			b.WriteString("<branch>" + escape(h.Branch) + "</branch>\n")
		}
		if h.Commit != "" {
			b.WriteString("<commit>" + escape(h.Commit) + "</commit>\n")
		}
		b.WriteString("</source>\n")
	}
	b.WriteString("<notes>\n" + escape(summaryNotes) + "\n</notes>\n")
	b.WriteString("</file_summary>\n\n")

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	b.WriteString("<repository_structure>\n" + escape(tree(paths)) + "\n</repository_structure>\n\n")

	b.WriteString("<repository_files>\n")
	for _, f := range files {
		b.WriteString(`<file path="` + escape(f.path) + `">` + "\n")
		b.WriteString(f.content + "\n")
		b.WriteString("</file>\n\n")
	}
	b.WriteString("</repository_files>\n")
	return b.String()
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escape(s string) string {
	return xmlEscaper.Replace(s)
}
