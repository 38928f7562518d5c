package main

import "github.com/Zachkp/folio/internal/viewport"

// Sections drive both the page regions and the navigation menu.
var Sections = []viewport.Section{
	{ID: "home", Title: "HOME", Info: "Welcome section with hero content, main headline, and call-to-action buttons", Theme: "slate"},
	{ID: "about", Title: "ABOUT", Info: "Company story, mission, vision, team information, and core values", Theme: "graphite"},
	{ID: "services", Title: "SERVICES", Info: "Service offerings, features, pricing plans, and detailed descriptions", Theme: "ink"},
	{ID: "portfolio", Title: "PORTFOLIO", Info: "Project showcase, case studies, client work, and achievements gallery", Theme: "carbon"},
	{ID: "contact", Title: "CONTACT", Info: "Contact form, office locations, phone numbers, and social media links", Theme: "graphite"},
}

type Service struct {
	Name    string
	Summary string
}

var (
	AboutMe = `I build software that is useful first and fun second, and I like knowing how things work
	underneath. Most projects start as a small idea and turn into a reason to learn a new tool,
	a new language or a better way to solve an old problem.`

	Services = []Service{
		{Name: "Web Apps", Summary: "Server-rendered sites and dashboards with Go, HTMX and a sprinkle of JavaScript."},
		{Name: "APIs", Summary: "JSON and streaming APIs with clear error contracts, tests and structured logs."},
		{Name: "Tooling", Summary: "CLIs, automation and small services that remove friction from a team's day."},
	}
)
