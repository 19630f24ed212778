package clubcontext

import (
	"club-backend/internal/config"
	"fmt"
	"html"
	"strings"
	"unicode"
	"unicode/utf8"
)

// AnchorClass is the CSS class the frontend styles in-chat links with
const AnchorClass = "text-primary-600 hover:text-primary-800 transition-colors"

// Anchor renders a link the way the chat frontend expects: an HTML anchor that
// opens in a new tab so the single-page app is not reloaded
func Anchor(url, label string) string {
	return fmt.Sprintf(
		"<a href='%s' target='_blank' rel='noopener noreferrer' class='%s'>%s</a>",
		html.EscapeString(url), AnchorClass, html.EscapeString(label),
	)
}

// Builder assembles the system context sent ahead of every completion request
type Builder struct {
	club           *config.ClubProfile
	baseURL        string
	systemPrompt   string
	useClubContext bool
}

// NewBuilder creates a builder over the club profile and chatbot settings
func NewBuilder(club *config.ClubProfile, chatbot config.ChatbotConfig) *Builder {
	return &Builder{
		club:           club,
		baseURL:        strings.TrimRight(chatbot.FrontendBaseURL, "/"),
		systemPrompt:   chatbot.SystemPrompt,
		useClubContext: chatbot.UseClubContext,
	}
}

// PageURL resolves a page to an absolute link, preferring its explicit URL
func (b *Builder) PageURL(page config.Page) string {
	if page.URL != "" {
		return page.URL
	}
	path := page.Path
	if path == "" {
		path = "/"
	}
	return b.baseURL + path
}

// PageLink renders the anchor for a page key, or "" if the profile has no such page
func (b *Builder) PageLink(key, label string) string {
	page, ok := b.club.Pages[key]
	if !ok {
		return ""
	}
	return Anchor(b.PageURL(page), label)
}

// Build returns the system context. Output depends only on the profile and settings.
func (b *Builder) Build() string {
	var sb strings.Builder

	if !b.useClubContext && b.systemPrompt != "" {
		sb.WriteString(b.systemPrompt)
		sb.WriteString("\n\n")
		b.writeFormatting(&sb)
		return sb.String()
	}

	fmt.Fprintf(&sb, "You are the %s's AI assistant.\n", b.club.Name)
	b.writeFormatting(&sb)
	sb.WriteString("\n")
	b.writeClubInfo(&sb)
	sb.WriteString("\n")
	b.writeTeam(&sb)
	sb.WriteString("\n")
	b.writePages(&sb)
	sb.WriteString("\nAlways use HTML anchor tags for links, not markdown or plain URLs.")

	return sb.String()
}

func (b *Builder) writeFormatting(sb *strings.Builder) {
	sb.WriteString("When referring to pages, use HTML anchor tags with this format:\n")
	fmt.Fprintf(sb, "<a href='/page-path' class='%s'>Link Text</a>\n\n", AnchorClass)
	fmt.Fprintf(sb, "For example: To view our projects, visit <a href='/projects' class='%s'>Projects page</a>.\n", AnchorClass)
	sb.WriteString("Never use markdown links or bare URLs.\n")
}

func (b *Builder) writeClubInfo(sb *strings.Builder) {
	sb.WriteString("Club Information:\n\n")
	if b.club.Vision != "" {
		fmt.Fprintf(sb, "Vision: %s\n", b.club.Vision)
	}
	if b.club.Description != "" {
		fmt.Fprintf(sb, "About: %s\n", b.club.Description)
	}
	if len(b.club.Departments) > 0 {
		fmt.Fprintf(sb, "Departments: %s\n", strings.Join(b.club.Departments, ", "))
	}
	if len(b.club.Projects) > 0 {
		sb.WriteString("Projects:\n")
		for _, project := range b.club.Projects {
			fmt.Fprintf(sb, "- %s\n", project)
		}
	}
}

func (b *Builder) writeTeam(sb *strings.Builder) {
	sb.WriteString("Team Information:\n\n")
	for _, exec := range b.club.Executives {
		if exec.Bio != "" {
			fmt.Fprintf(sb, "- %s (%s): %s\n", exec.Name, exec.Role, exec.Bio)
			continue
		}
		fmt.Fprintf(sb, "- %s (%s)\n", exec.Name, exec.Role)
	}
}

func (b *Builder) writePages(sb *strings.Builder) {
	sb.WriteString("Available Pages:\n\n")
	for _, key := range b.club.PageKeys() {
		page := b.club.Pages[key]
		fmt.Fprintf(sb, "- %s: %s\n", page.Description, Anchor(b.PageURL(page), Title(key)))
	}
}

// Title upper-cases the first letter of each word of a page key
func Title(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
