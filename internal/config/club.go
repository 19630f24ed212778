package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Executive is one entry of the club's executive roster
type Executive struct {
	Name string `yaml:"name" json:"name"`
	Role string `yaml:"role" json:"role"`
	Bio  string `yaml:"bio,omitempty" json:"bio,omitempty"`
}

// Page describes a frontend page the assistant may link to.
// URL, when set, takes precedence over FrontendBaseURL + Path.
type Page struct {
	Path        string `yaml:"path" json:"path"`
	URL         string `yaml:"url,omitempty" json:"url,omitempty"`
	Description string `yaml:"description" json:"description"`
}

// ClubProfile is the static organizational data shared by the prompt
// context and the canned replies.
type ClubProfile struct {
	Name        string            `yaml:"name" json:"name"`
	Vision      string            `yaml:"vision" json:"vision"`
	Description string            `yaml:"description" json:"description"`
	Departments []string          `yaml:"departments" json:"departments"`
	Projects    []string          `yaml:"projects" json:"projects"`
	Executives  []Executive       `yaml:"executives" json:"executives"`
	Pages       map[string]Page   `yaml:"pages" json:"pages"`
	SocialLinks map[string]string `yaml:"social_links" json:"social_links"`
}

// NewClubProfile loads a club profile from a YAML file
func NewClubProfile(path string) (*ClubProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var profile ClubProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, err
	}

	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Validate checks the fields both reply paths rely on
func (p *ClubProfile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("club profile: name is required")
	}
	for key, page := range p.Pages {
		if page.Path == "" && page.URL == "" {
			return fmt.Errorf("club profile: page %q needs a path or url", key)
		}
	}
	return nil
}

// PageKeys returns page keys in a stable order
func (p *ClubProfile) PageKeys() []string {
	keys := make([]string, 0, len(p.Pages))
	for key := range p.Pages {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// DefaultClubProfile returns the built-in profile used when no file is configured
func DefaultClubProfile() *ClubProfile {
	return &ClubProfile{
		Name:        "University of Guelph Rocketry Club",
		Vision:      "Building and giving University of Guelph students fun rocketry experiences",
		Description: "We are working on entering Launch Canada for 2026 and developing a CubeSat project for land surveying research",
		Departments: []string{"Software", "Avionics", "Rocketry", "Finance"},
		Projects: []string{
			"CubeSat project for land surveying research",
			"Launch Canada 2026 preparation and competition entry",
			"High-powered rocketry development",
			"Educational rocketry workshops for UofG students",
		},
		Executives: []Executive{
			{Name: "Darren", Role: "Club President"},
			{Name: "Celina", Role: "Vice President"},
			{Name: "Rahma", Role: "Advisor"},
			{Name: "Aban", Role: "Finance"},
			{Name: "Marko", Role: "Rocketry Team Lead"},
			{Name: "Nick", Role: "Software Team Lead"},
			{Name: "Tylen", Role: "Avionics Team Lead"},
			{Name: "Yassin", Role: "Outreach Lead"},
		},
		Pages: map[string]Page{
			"projects": {Path: "/projects", Description: "View our current rocketry and cubesat projects"},
			"team":     {Path: "/team", Description: "Meet our executive team and departments"},
			"sponsors": {Path: "/sponsors", Description: "Learn about our sponsors and partnerships"},
			"join":     {Path: "/join", Description: "Information about joining the club"},
		},
		SocialLinks: map[string]string{
			"discord":   "https://discord.gg/unfT4UpR",
			"linkedin":  "https://www.linkedin.com/company/uofg-rocketry-club/posts/",
			"instagram": "https://www.instagram.com/guelph_rockets",
		},
	}
}
