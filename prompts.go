package main

import (
	"net/http"

	"github.com/Zachkp/folio/internal/gate"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *server) promptsData(unlocked bool) gin.H {
	data := s.page("Prompts")
	data["Unlocked"] = unlocked
	if unlocked {
		data["Library"] = s.library
	}
	return data
}

// promptsPage shows the prompt library once unlocked and the passphrase form
// otherwise. The unlock flag is separate from the admin session.
func (s *server) promptsPage(c *gin.Context) {
	render(c, http.StatusOK, "prompts.html", "prompts", s.promptsData(s.gate.Unlocked(c.Request, gate.Prompts)))
}

func (s *server) promptsUnlock(c *gin.Context) {
	if !s.gate.CheckPassphrase(c.PostForm("passphrase")) {
		data := s.promptsData(false)
		data["Error"] = "Incorrect password."
		status := http.StatusOK
		if !isHTMX(c) {
			status = http.StatusUnauthorized
		}
		render(c, status, "prompts.html", "prompts", data)
		return
	}

	if err := s.gate.Grant(c.Writer, c.Request, gate.Prompts); err != nil {
		s.logger.Error("Could not save prompt session", zap.Error(err))
		data := s.promptsData(false)
		data["Error"] = "Could not save session. Please check browser settings."
		render(c, http.StatusOK, "prompts.html", "prompts", data)
		return
	}

	if !isHTMX(c) {
		c.Redirect(http.StatusSeeOther, "/prompts")
		return
	}
	c.Header("HX-Push-Url", "/prompts")
	c.HTML(http.StatusOK, "prompts", s.promptsData(true))
}
