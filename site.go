package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Zachkp/folio/internal/analytics"
	"github.com/Zachkp/folio/internal/contact"
	"github.com/Zachkp/folio/internal/draft"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// xcloudCode is the redirect link behind the xCloud interstitial.
const xcloudCode = "xcloud"

// skeletons is the number of placeholder cards shown while projects load.
var skeletons = make([]struct{}, 3)

func (s *server) index(c *gin.Context) {
	data := s.page("")
	data["About"] = AboutMe
	data["Services"] = Services
	data["Ready"] = s.projects.Ready()
	data["Projects"] = s.projects.List()
	data["Skeletons"] = skeletons
	data["TerminalEnabled"] = s.drafts.Enabled()
	render(c, http.StatusOK, "index.html", "home", data)
}

func (s *server) privacy(c *gin.Context) {
	render(c, http.StatusOK, "privacy.html", "privacy", s.page("Privacy"))
}

func (s *server) xcloud(c *gin.Context) {
	render(c, http.StatusOK, "xcloud.html", "xcloud", s.page("xCloud"))
}

// followLink counts a click and redirects to the link target.
func (s *server) followLink(c *gin.Context) {
	code := c.Param("code")
	if s.visitors == nil {
		if code == xcloudCode {
			c.Redirect(http.StatusFound, s.cfg.Analytics.XCloudURL)
			return
		}
		c.String(http.StatusNotFound, "Link not found")
		return
	}

	target, err := s.visitors.Follow(c.Request.Context(), code)
	switch {
	case errors.Is(err, analytics.ErrLinkNotFound):
		c.String(http.StatusNotFound, "Link not found")
	case err != nil:
		s.logger.Error("Error following link", zap.String("code", code), zap.Error(err))
		c.String(http.StatusInternalServerError, "Internal server error")
	default:
		c.Redirect(http.StatusFound, target)
	}
}

// health reports 503 until the project store has loaded.
func (s *server) health(c *gin.Context) {
	ready := s.projects.Ready()
	status, state := http.StatusOK, "ok"
	if !ready {
		status, state = http.StatusServiceUnavailable, "loading"
	}
	c.JSON(status, gin.H{
		"status":         state,
		"projects_ready": ready,
		"views":          s.views.Len(),
		"ai_enabled":     s.drafts.Enabled(),
	})
}

func (s *server) contactForm(c *gin.Context) {
	c.HTML(http.StatusOK, "contact-form", gin.H{})
}

// contactSubmit always answers 200 so htmx swaps the success or error
// fragment in place of the form.
func (s *server) contactSubmit(c *gin.Context) {
	if !s.limiter.Allow(c.ClientIP()) {
		c.HTML(http.StatusOK, "contact-error", gin.H{
			"error": "You're sending messages too quickly. Please try again later.",
		})
		return
	}

	msg := contact.Message{
		Name:  c.PostForm("fullName"),
		Email: c.PostForm("email"),
		Body:  c.PostForm("message"),
	}
	if err := s.mailer.Send(msg); err != nil {
		text := "Sorry, there was an error sending your message. Please try again later."
		if errors.Is(err, contact.ErrInvalid) {
			text = "Please fill in your name, a valid email address and a message."
		} else {
			_ = c.Error(err)
		}
		c.HTML(http.StatusOK, "contact-error", gin.H{"error": text})
		return
	}

	c.HTML(http.StatusOK, "contact-success", gin.H{
		"success": "Thank you for your message! I'll get back to you soon.",
	})
}

// terminalPrompt answers the home page terminal. Like the contact form it
// always answers 200 so the reply or error lands in the output box; a blank
// prompt leaves the box untouched.
func (s *server) terminalPrompt(c *gin.Context) {
	prompt := c.PostForm("prompt")
	if strings.TrimSpace(prompt) == "" {
		c.Status(http.StatusNoContent)
		return
	}
	if !s.terminal.Allow(c.ClientIP()) {
		c.HTML(http.StatusOK, "terminal-reply", gin.H{"Error": "// Error: Rate limit exceeded. Try again later."})
		return
	}

	reply, err := s.drafts.Reply(c.Request.Context(), prompt)
	if err != nil {
		text := "// Error: Connection to AI mainframe failed. Please try again."
		switch {
		case errors.Is(err, draft.ErrPromptTooLong):
			text = fmt.Sprintf("// Error: Prompt exceeds %d characters.", draft.MaxTerminalPrompt)
		case errors.Is(err, draft.ErrUnavailable):
			text = "// Error: AI mainframe offline."
		default:
			_ = c.Error(err)
		}
		c.HTML(http.StatusOK, "terminal-reply", gin.H{"Error": text})
		return
	}
	c.HTML(http.StatusOK, "terminal-reply", gin.H{"Reply": reply})
}
