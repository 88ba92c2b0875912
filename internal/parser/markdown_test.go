package parser

import "testing"

func TestParseMarkdownTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "frontmatter title wins",
			content: "---\ntitle: From Frontmatter\n---\n# From Heading\n\nBody.",
			want:    "From Frontmatter",
		},
		{
			name:    "frontmatter name fallback",
			content: "---\nname: Named Doc\n---\nBody without heading.",
			want:    "Named Doc",
		},
		{
			name:    "first h1",
			content: "# Heading Title\n\nBody.",
			want:    "Heading Title",
		},
		{
			name:    "no title",
			content: "Just body text.",
			want:    "",
		},
		{
			name:    "broken frontmatter ignored",
			content: "---\n:[not yaml\n---\n# Still Works\n\nBody.",
			want:    "Still Works",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseMarkdown(tt.content)
			if err != nil {
				t.Fatalf("ParseMarkdown() error = %v", err)
			}
			if doc.Title != tt.want {
				t.Errorf("Title = %q, want %q", doc.Title, tt.want)
			}
		})
	}
}

func TestParseMarkdownSections(t *testing.T) {
	content := "# Top\n\nIntro.\n\n## Setup\n\nInstall steps.\n\n### Install\n\nRun it.\n\n## Usage\n\nUse it.\n"
	doc, err := ParseMarkdown(content)
	if err != nil {
		t.Fatalf("ParseMarkdown() error = %v", err)
	}

	if len(doc.Sections) != 4 {
		t.Fatalf("got %d sections, want 4", len(doc.Sections))
	}

	install := doc.Sections[2]
	if install.Heading != "Install" || install.Level != 3 {
		t.Errorf("section[2] = %q level %d, want Install level 3", install.Heading, install.Level)
	}
	if install.Path != "# Top > ## Setup > ### Install" {
		t.Errorf("section path = %q", install.Path)
	}

	usage := doc.Sections[3]
	if usage.Path != "# Top > ## Usage" {
		t.Errorf("usage path = %q, sibling heading should pop the deeper levels", usage.Path)
	}
}

func TestGetFrontmatterStringSlice(t *testing.T) {
	doc, err := ParseMarkdown("---\ntags:\n  - alpha\n  - beta\n---\nBody.")
	if err != nil {
		t.Fatalf("ParseMarkdown() error = %v", err)
	}

	tags := doc.GetFrontmatterStringSlice("tags")
	if len(tags) != 2 || tags[0] != "alpha" || tags[1] != "beta" {
		t.Errorf("tags = %v, want [alpha beta]", tags)
	}

	if doc.GetFrontmatterStringSlice("missing") != nil {
		t.Error("missing key should return nil")
	}
}
