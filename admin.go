package main

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/Zachkp/folio/internal/portfolio"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	adminPath = "/admin"
	// newTarget names the add form for draft bookkeeping.
	newTarget = "new"
	// suggestionLimit caps tag autocomplete results.
	suggestionLimit = 5
	recentVisitors  = 50
)

var targetPattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)

// projectForm is the data behind the add and edit forms.
type projectForm struct {
	ID           string
	Target       string
	Input        portfolio.Input
	Categories   []portfolio.Category
	DraftEnabled bool
}

type suggestion struct {
	Tag   string
	Value string
}

func (s *server) newForm() projectForm {
	return projectForm{Target: newTarget, Categories: portfolio.Categories, DraftEnabled: s.drafts.Enabled()}
}

func (s *server) editForm(p portfolio.Project) projectForm {
	f := s.newForm()
	f.ID, f.Target, f.Input = p.ID, p.ID, portfolio.InputOf(p)
	return f
}

// formInput reads the project fields posted by the add and edit forms.
func formInput(c *gin.Context) portfolio.Input {
	return portfolio.Input{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		ImageURL:    c.PostForm("imageUrl"),
		ProjectURL:  c.PostForm("projectUrl"),
		Tags:        portfolio.ParseTags(c.PostForm("tags")),
		Category:    portfolio.Category(c.PostForm("category")),
	}
}

func (s *server) setupAdminRoutes(r *gin.Engine) {
	r.GET(adminPath, s.adminPage)
	r.POST("/admin/login", s.adminLogin)
	r.POST("/admin/logout", s.adminLogout)

	admin := r.Group(adminPath, s.gate.Require(adminPath))
	{
		admin.GET("/projects", s.adminProjects)
		admin.GET("/projects/new", s.adminNewForm)
		admin.POST("/projects", s.adminAddProject)
		admin.GET("/projects/:id/edit", s.adminEditForm)
		admin.PUT("/projects/:id", s.adminEditProject)
		admin.DELETE("/projects/:id", s.adminDeleteProject)
		admin.POST("/projects/:id/pin", s.adminPinProject)
		admin.GET("/tags/complete", s.adminCompleteTags)
		admin.POST("/draft", s.adminDraft)
		admin.GET("/stats", s.adminStats)
		admin.GET("/stats/export", s.adminExportStats)
		admin.GET("/export", s.adminExportProjects)
	}

	api := r.Group("/admin/api", s.gate.Require(adminPath))
	{
		api.GET("/projects", s.apiListProjects)
		api.GET("/projects/:id", s.apiGetProject)
		api.POST("/projects", s.apiAddProject)
		api.PUT("/projects/:id", s.apiEditProject)
		api.DELETE("/projects/:id", s.apiDeleteProject)
		api.POST("/projects/:id/pin", s.apiPinProject)
		api.GET("/tags", s.apiTags)
		api.POST("/draft", s.apiDraft)
		api.GET("/stats", s.apiStats)
	}
}

func (s *server) adminData(c *gin.Context, authenticated bool) gin.H {
	data := s.page("Admin")
	data["Authenticated"] = authenticated
	data["Ready"] = s.projects.Ready()
	data["Projects"] = s.projects.List()
	data["Form"] = s.newForm()
	if authenticated && s.visitors != nil {
		stats, err := s.visitors.Stats(c.Request.Context(), recentVisitors)
		if err != nil {
			s.logger.Error("Error loading admin stats", zap.Error(err))
		} else {
			data["Stats"] = stats
		}
	}
	return data
}

// adminPage shows the dashboard with an active session and the login form
// otherwise.
func (s *server) adminPage(c *gin.Context) {
	render(c, http.StatusOK, "admin.html", "admin", s.adminData(c, s.gate.IsSessionActive(c.Request)))
}

func (s *server) adminLogin(c *gin.Context) {
	if !s.gate.CheckPassphrase(c.PostForm("passphrase")) {
		s.logger.Info("Failed admin login attempt")
		data := s.adminData(c, false)
		data["Error"] = "Incorrect password. Please try again."
		status := http.StatusOK
		if !isHTMX(c) {
			status = http.StatusUnauthorized
		}
		render(c, status, "admin.html", "admin", data)
		return
	}

	if err := s.gate.Begin(c.Writer, c.Request); err != nil {
		s.logger.Error("Could not save admin session", zap.Error(err))
		data := s.adminData(c, false)
		data["Error"] = "Could not save session. Please check your browser settings."
		render(c, http.StatusOK, "admin.html", "admin", data)
		return
	}
	s.logger.Info("Admin login successful")

	if !isHTMX(c) {
		c.Redirect(http.StatusSeeOther, adminPath)
		return
	}
	// The session cookie is only on the response; this request still looks
	// anonymous to the gate.
	c.Header("HX-Push-Url", adminPath)
	c.HTML(http.StatusOK, "admin", s.adminData(c, true))
}

func (s *server) adminLogout(c *gin.Context) {
	if err := s.gate.End(c.Writer, c.Request); err != nil {
		s.logger.Warn("Could not clear admin session", zap.Error(err))
	}
	s.logger.Info("Admin logout")
	if isHTMX(c) {
		c.Header("HX-Redirect", "/")
		c.Status(http.StatusOK)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *server) adminProjects(c *gin.Context) {
	c.HTML(http.StatusOK, "admin-projects", gin.H{
		"Ready":    s.projects.Ready(),
		"Projects": s.projects.List(),
	})
}

func (s *server) adminNewForm(c *gin.Context) {
	c.HTML(http.StatusOK, "project-form", s.newForm())
}

func (s *server) adminAddProject(c *gin.Context) {
	if _, err := s.projects.Add(c.Request.Context(), formInput(c)); err != nil {
		c.Status(s.reject(c, err))
		return
	}
	notify(c, toastSuccess, "Project added successfully!", projectsChanged)
	c.HTML(http.StatusOK, "project-form", s.newForm())
}

func (s *server) adminEditForm(c *gin.Context) {
	p, ok := s.projects.Get(c.Param("id"))
	if !ok {
		c.Status(s.reject(c, portfolio.ErrNotFound))
		return
	}
	c.HTML(http.StatusOK, "project-form", s.editForm(p))
}

func (s *server) adminEditProject(c *gin.Context) {
	if _, err := s.projects.Edit(c.Request.Context(), c.Param("id"), formInput(c)); err != nil {
		c.Status(s.reject(c, err))
		return
	}
	notify(c, toastSuccess, "Project updated successfully!", projectsChanged)
	c.HTML(http.StatusOK, "project-form", s.newForm())
}

func (s *server) adminDeleteProject(c *gin.Context) {
	if err := s.projects.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.Status(s.reject(c, err))
		return
	}
	notify(c, toastSuccess, "Project deleted.", projectsChanged)
	c.Status(http.StatusOK)
}

func (s *server) adminPinProject(c *gin.Context) {
	id := c.Param("id")
	if err := s.projects.Pin(c.Request.Context(), id); err != nil {
		c.Status(s.reject(c, err))
		return
	}
	notify(c, toastSuccess, "Project pinned to the top.", projectsChanged)
	c.Status(http.StatusOK)
}

func (s *server) adminCompleteTags(c *gin.Context) {
	input := c.Query("tags")
	matches := portfolio.CompleteTags(s.projects.TagSuggestions(), input, suggestionLimit)
	out := make([]suggestion, len(matches))
	for i, tag := range matches {
		out[i] = suggestion{Tag: tag, Value: portfolio.ApplyCompletion(input, tag)}
	}
	c.HTML(http.StatusOK, "tag-suggestions", out)
}

// adminDraft replaces the description field with a generated draft. On
// failure the field is rendered unchanged and a single error toast is sent.
func (s *server) adminDraft(c *gin.Context) {
	target := c.PostForm("target")
	if !targetPattern.MatchString(target) {
		target = newTarget
	}
	form := s.newForm()
	form.Target = target
	if target != newTarget {
		form.ID = target
	}
	form.Input = formInput(c)

	text, err := s.drafts.Draft(c.Request.Context(), target, form.Input.Title, form.Input.Tags)
	if err != nil {
		c.HTML(s.reject(c, err), "description-field", form)
		return
	}
	form.Input.Description = text
	c.HTML(http.StatusOK, "description-field", form)
}

func (s *server) adminStats(c *gin.Context) {
	if s.visitors == nil {
		c.String(http.StatusNotFound, "Visitor analytics disabled")
		return
	}
	stats, err := s.visitors.Stats(c.Request.Context(), recentVisitors)
	if err != nil {
		s.logger.Error("Error loading admin stats", zap.Error(err))
		c.String(http.StatusInternalServerError, "Error loading stats")
		return
	}
	c.HTML(http.StatusOK, "admin-stats", stats)
}

func (s *server) adminExportStats(c *gin.Context) {
	if s.visitors == nil {
		c.String(http.StatusNotFound, "Visitor analytics disabled")
		return
	}
	stats, err := s.visitors.Stats(c.Request.Context(), 1000)
	if err != nil {
		s.logger.Error("Error exporting admin stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export stats"})
		return
	}
	attachment(c, "stats")
	c.JSON(http.StatusOK, stats)
	s.logger.Info("Admin stats exported")
}

func (s *server) adminExportProjects(c *gin.Context) {
	if !s.projects.Ready() {
		c.String(statusFor(portfolio.ErrNotReady), messageFor(portfolio.ErrNotReady))
		return
	}
	data, err := portfolio.Encode(s.projects.List())
	if err != nil {
		s.logger.Error("Error exporting projects", zap.Error(err))
		c.String(http.StatusInternalServerError, "Failed to export projects")
		return
	}
	attachment(c, "projects")
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func attachment(c *gin.Context, name string) {
	filename := fmt.Sprintf("portfolio-%s-%s.json", name, time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
}

func (s *server) apiListProjects(c *gin.Context) {
	if !s.projects.Ready() {
		s.rejectJSON(c, portfolio.ErrNotReady)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": s.projects.List()})
}

func (s *server) apiGetProject(c *gin.Context) {
	if !s.projects.Ready() {
		s.rejectJSON(c, portfolio.ErrNotReady)
		return
	}
	p, ok := s.projects.Get(c.Param("id"))
	if !ok {
		s.rejectJSON(c, portfolio.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *server) apiAddProject(c *gin.Context) {
	var in portfolio.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}
	p, err := s.projects.Add(c.Request.Context(), in)
	if err != nil {
		s.rejectJSON(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *server) apiEditProject(c *gin.Context) {
	var in portfolio.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}
	p, err := s.projects.Edit(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		s.rejectJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *server) apiDeleteProject(c *gin.Context) {
	if err := s.projects.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.rejectJSON(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) apiPinProject(c *gin.Context) {
	if err := s.projects.Pin(c.Request.Context(), c.Param("id")); err != nil {
		s.rejectJSON(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) apiTags(c *gin.Context) {
	if input, ok := c.GetQuery("complete"); ok {
		c.JSON(http.StatusOK, gin.H{"tags": portfolio.CompleteTags(s.projects.TagSuggestions(), input, suggestionLimit)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": s.projects.TagSuggestions()})
}

type draftRequest struct {
	Target string   `json:"target"`
	Title  string   `json:"title"`
	Tags   []string `json:"tags"`
}

func (s *server) apiDraft(c *gin.Context) {
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}
	if !targetPattern.MatchString(req.Target) {
		req.Target = newTarget
	}
	text, err := s.drafts.Draft(c.Request.Context(), req.Target, req.Title, req.Tags)
	if err != nil {
		s.rejectJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"description": text})
}

func (s *server) apiStats(c *gin.Context) {
	if s.visitors == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "visitor analytics disabled"})
		return
	}
	stats, err := s.visitors.Stats(c.Request.Context(), recentVisitors)
	if err != nil {
		s.logger.Error("Error loading admin stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
