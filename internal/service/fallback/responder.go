package fallback

import (
	"club-backend/internal/config"
	"club-backend/internal/service/clubcontext"
	"fmt"
	"strings"
	"unicode"
)

// Category is the topic a message was classified into
type Category string

const (
	CategoryTeam        Category = "team"
	CategoryProject     Category = "project"
	CategoryJoining     Category = "joining"
	CategorySponsorship Category = "sponsorship"
	CategoryDefault     Category = "default"
)

// Keyword sets in priority order; the first category with a match wins.
// Keywords match whole words; a trailing * also accepts longer words with that stem.
var rules = []struct {
	category Category
	keywords []string
}{
	{CategoryTeam, []string{"team*", "members", "exec*", "president", "lead*", "roster", "people", "who runs"}},
	{CategoryProject, []string{"project*", "cubesat*", "launch*", "mission*", "competition*", "build*"}},
	{CategoryJoining, []string{"join*", "sign up", "signup", "become", "member", "membership", "apply", "discord", "get involved", "recruit*"}},
	{CategorySponsorship, []string{"sponsor*", "partner*", "donat*", "fund*", "support*"}},
}

// Classify returns the category of text using case-insensitive word matching
func Classify(text string) Category {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, rule := range rules {
		for _, keyword := range rule.keywords {
			if containsKeyword(words, keyword) {
				return rule.category
			}
		}
	}
	return CategoryDefault
}

// containsKeyword reports whether the keyword's words appear consecutively in words
func containsKeyword(words []string, keyword string) bool {
	stem := strings.HasSuffix(keyword, "*")
	parts := strings.Fields(strings.TrimSuffix(keyword, "*"))
	if len(parts) == 0 {
		return false
	}
	for i := 0; i+len(parts) <= len(words); i++ {
		matched := true
		for j, part := range parts {
			word := words[i+j]
			last := j == len(parts)-1
			if word != part && !(last && stem && strings.HasPrefix(word, part)) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

// Responder produces canned replies from the club profile when no completion backend answers
type Responder struct {
	club  *config.ClubProfile
	links *clubcontext.Builder
}

// NewResponder creates a responder; links renders page anchors the same way the prompt context does
func NewResponder(club *config.ClubProfile, links *clubcontext.Builder) *Responder {
	return &Responder{club: club, links: links}
}

// Generate returns a non-empty reply for any input
func (r *Responder) Generate(userText string) string {
	switch Classify(userText) {
	case CategoryTeam:
		return r.team()
	case CategoryProject:
		return r.projects()
	case CategoryJoining:
		return r.joining()
	case CategorySponsorship:
		return r.sponsorship()
	default:
		return r.general()
	}
}

func (r *Responder) team() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "The %s is run by our executive team:\n", r.club.Name)
	for _, exec := range r.club.Executives {
		fmt.Fprintf(&sb, "- %s (%s)\n", exec.Name, exec.Role)
	}
	if len(r.club.Departments) > 0 {
		fmt.Fprintf(&sb, "We work across these departments: %s.\n", strings.Join(r.club.Departments, ", "))
	}
	r.visit(&sb, "team", "Team page", "To learn more about everyone, visit our")
	return strings.TrimSpace(sb.String())
}

func (r *Responder) projects() string {
	var sb strings.Builder
	sb.WriteString("Here is what we are working on right now:\n")
	for _, project := range r.club.Projects {
		fmt.Fprintf(&sb, "- %s\n", project)
	}
	if len(r.club.Projects) == 0 && r.club.Description != "" {
		sb.WriteString(r.club.Description + "\n")
	}
	r.visit(&sb, "projects", "Projects page", "For progress updates, check out our")
	return strings.TrimSpace(sb.String())
}

func (r *Responder) joining() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "We would love to have you in the %s! No experience is needed, ", r.club.Name)
	if len(r.club.Departments) > 0 {
		fmt.Fprintf(&sb, "and you can help out in %s.\n", strings.Join(r.club.Departments, ", "))
	} else {
		sb.WriteString("just bring your curiosity.\n")
	}
	r.visit(&sb, "join", "Join page", "Everything you need to get started is on our")
	if discord, ok := r.club.SocialLinks["discord"]; ok {
		fmt.Fprintf(&sb, "You can also say hi on our %s.\n", clubcontext.Anchor(discord, "Discord server"))
	}
	return strings.TrimSpace(sb.String())
}

func (r *Responder) sponsorship() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Thank you for your interest in supporting the %s! ", r.club.Name)
	sb.WriteString("Sponsors help fund our materials, launch fees and competition travel, and we recognize our partners on our website and at events.\n")
	r.visit(&sb, "sponsors", "Sponsors page", "Details about partnership opportunities are on our")
	return strings.TrimSpace(sb.String())
}

func (r *Responder) general() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Hi! I'm the %s's assistant.", r.club.Name)
	if r.club.Vision != "" {
		fmt.Fprintf(&sb, " Our mission: %s.", strings.TrimSuffix(r.club.Vision, "."))
	}
	sb.WriteString(" I can tell you about our team, our projects, how to join, or how to sponsor us.\n")
	for _, key := range r.club.PageKeys() {
		if link := r.links.PageLink(key, clubcontext.Title(key)); link != "" {
			fmt.Fprintf(&sb, "- %s\n", link)
		}
	}
	return strings.TrimSpace(sb.String())
}

func (r *Responder) visit(sb *strings.Builder, key, label, lead string) {
	if link := r.links.PageLink(key, label); link != "" {
		fmt.Fprintf(sb, "%s %s.\n", lead, link)
	}
}
