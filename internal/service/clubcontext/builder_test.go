package clubcontext

import (
	"club-backend/internal/config"
	"strings"
	"testing"
)

func testChatbotConfig() config.ChatbotConfig {
	return config.ChatbotConfig{FrontendBaseURL: "https://club.example/", UseClubContext: true}
}

func TestAnchor(t *testing.T) {
	got := Anchor("https://club.example/team", "Team")
	want := "<a href='https://club.example/team' target='_blank' rel='noopener noreferrer' class='text-primary-600 hover:text-primary-800 transition-colors'>Team</a>"
	if got != want {
		t.Errorf("Anchor() =\n%s\nwant\n%s", got, want)
	}

	if got := Anchor("/x?a=1&b=2", "A & B"); !strings.Contains(got, "a=1&amp;b=2") || !strings.Contains(got, ">A &amp; B<") {
		t.Errorf("Anchor() did not escape: %s", got)
	}
}

func TestBuilder_Build(t *testing.T) {
	club := config.DefaultClubProfile()
	club.Pages["discord"] = config.Page{URL: "https://discord.gg/abc", Description: "Chat with members"}

	out := NewBuilder(club, testChatbotConfig()).Build()

	wantParts := []string{
		"You are the University of Guelph Rocketry Club's AI assistant.",
		"class='text-primary-600 hover:text-primary-800 transition-colors'",
		"Club Information:",
		"Departments: Software, Avionics, Rocketry, Finance",
		"Team Information:",
		"- Darren (Club President)",
		"- Nick (Software Team Lead)",
		"Available Pages:",
		"- Meet our executive team and departments: " + Anchor("https://club.example/team", "Team"),
		"- Chat with members: " + Anchor("https://discord.gg/abc", "Discord"),
		"Always use HTML anchor tags for links, not markdown or plain URLs.",
	}
	for _, part := range wantParts {
		if !strings.Contains(out, part) {
			t.Errorf("Build() output missing %q", part)
		}
	}

	if strings.Contains(out, "](") {
		t.Error("Build() output contains a markdown link")
	}
}

func TestBuilder_BuildIsDeterministic(t *testing.T) {
	b := NewBuilder(config.DefaultClubProfile(), testChatbotConfig())
	first := b.Build()
	for i := 0; i < 20; i++ {
		if got := b.Build(); got != first {
			t.Fatal("Build() output changed between calls")
		}
	}

	// pages are listed in key order regardless of map iteration
	idxJoin := strings.Index(first, ">Join<")
	idxTeam := strings.Index(first, ">Team<")
	if idxJoin < 0 || idxTeam < 0 || idxJoin > idxTeam {
		t.Errorf("pages not in key order: join at %d, team at %d", idxJoin, idxTeam)
	}
}

func TestBuilder_SystemPromptOverride(t *testing.T) {
	cfg := testChatbotConfig()
	cfg.SystemPrompt = "You answer questions about rockets."

	// the rich context wins while it is enabled
	if out := NewBuilder(config.DefaultClubProfile(), cfg).Build(); strings.Contains(out, cfg.SystemPrompt) {
		t.Error("override used while club context is enabled")
	}

	cfg.UseClubContext = false
	out := NewBuilder(config.DefaultClubProfile(), cfg).Build()
	if !strings.HasPrefix(out, cfg.SystemPrompt) {
		t.Errorf("override not used: %q", out)
	}
	if strings.Contains(out, "Team Information:") {
		t.Error("club blocks present with override active")
	}
	if !strings.Contains(out, AnchorClass) {
		t.Error("formatting contract missing with override active")
	}
}

func TestBuilder_PageLink(t *testing.T) {
	b := NewBuilder(config.DefaultClubProfile(), testChatbotConfig())

	if got := b.PageLink("join", "Join page"); got != Anchor("https://club.example/join", "Join page") {
		t.Errorf("PageLink(join) = %s", got)
	}
	if got := b.PageLink("missing", "x"); got != "" {
		t.Errorf("PageLink(missing) = %q, want empty", got)
	}
}

func TestTitle(t *testing.T) {
	tests := map[string]string{
		"team":            "Team",
		"project_updates": "Project Updates",
		"get-involved":    "Get Involved",
		"équipe":          "Équipe",
		"ökologie_team":   "Ökologie Team",
	}
	for in, want := range tests {
		if got := Title(in); got != want {
			t.Errorf("Title(%q) = %q, want %q", in, got, want)
		}
	}
}
