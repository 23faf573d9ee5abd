package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"storybook/internal/catalog"
	"storybook/internal/model"
	"storybook/internal/session"
	"storybook/internal/story"
)

// maxAvatarSize caps avatar uploads at 10MB.
const maxAvatarSize = 10 << 20

// StoryGenerator produces a validated story for a catalog pair.
type StoryGenerator interface {
	Generate(ctx context.Context, category, subcategory string, slideCount int) (*model.Story, error)
}

// ImageRenderer produces one slide illustration from the avatar and prompt.
type ImageRenderer interface {
	Render(ctx context.Context, avatar []byte, sceneDescription, storyText string) ([]byte, error)
}

// Server holds the wired dependencies of the HTTP surface. Everything is
// injected at startup; handlers carry no global state.
type Server struct {
	catalog  *catalog.Catalog
	stories  StoryGenerator
	images   ImageRenderer
	sessions *session.Store
	tool     einotool.InvokableTool

	textAPIConfigured  bool
	imageAPIConfigured bool
	mock               bool

	log *logrus.Entry
}

// New builds a Server. tool may be nil, in which case the /tools route is
// not mounted.
func New(cat *catalog.Catalog, stories StoryGenerator, images ImageRenderer, sessions *session.Store, tool einotool.InvokableTool, textAPIConfigured, imageAPIConfigured, mock bool) *Server {
	return &Server{
		catalog:            cat,
		stories:            stories,
		images:             images,
		sessions:           sessions,
		tool:               tool,
		textAPIConfigured:  textAPIConfigured,
		imageAPIConfigured: imageAPIConfigured,
		mock:               mock,
		log:                logrus.WithField("component", "server"),
	}
}

// Routes registers all endpoints on r.
func (s *Server) Routes(r *gin.Engine) {
	r.GET("/health", s.handleHealth)
	r.GET("/api/categories", s.handleCategories)
	r.POST("/api/generate-story", s.handleGenerateStory)
	r.POST("/api/generate-story-session", s.handleCreateSession)
	r.POST("/api/generate-story-image/:session_id/:slide_number", s.handleGenerateImage)
	r.GET("/api/get-story-data/:session_id", s.handleGetStory)
	r.GET("/api/get-avatar/:session_id", s.handleGetAvatar)
	r.POST("/cleanup/:session_id", s.handleCleanup)
	if s.tool != nil {
		r.POST("/tools/story-generate", s.handleStoryTool)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":               "ok",
		"text_api_configured":  s.textAPIConfigured,
		"image_api_configured": s.imageAPIConfigured,
		"mock":                 s.mock,
	})
}

func (s *Server) handleCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"categories": s.catalog.Categories(),
	})
}

func (s *Server) handleGenerateStory(c *gin.Context) {
	var req model.StoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !model.ValidSlideCount(req.NumSlides) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("num_slides must be between %d and %d", model.MinSlides, model.MaxSlides),
		})
		return
	}

	category, subcategory := req.Category, req.Subcategory
	if req.UseRandom {
		category, subcategory = s.catalog.RandomPair()
	} else {
		if category == "" || subcategory == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "category and subcategory are required unless use_random is set"})
			return
		}
		if !s.catalog.Validate(category, subcategory) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category/subcategory pair"})
			return
		}
	}

	st, err := s.stories.Generate(c.Request.Context(), category, subcategory, req.NumSlides)
	if err != nil {
		s.failUpstream(c, "story generation failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "story": st})
}

func (s *Server) handleCreateSession(c *gin.Context) {
	file, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no avatar file uploaded"})
		return
	}
	if file.Size > maxAvatarSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar too large"})
		return
	}
	storyData := c.PostForm("story_data")
	if strings.TrimSpace(storyData) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "story_data is required"})
		return
	}
	var st model.Story
	if err := json.Unmarshal([]byte(storyData), &st); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "story_data is not valid story JSON"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read avatar upload"})
		return
	}
	defer src.Close()
	avatar, err := io.ReadAll(src)
	if err != nil || len(avatar) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read avatar upload"})
		return
	}

	id, err := s.sessions.Create(avatar)
	if err != nil {
		s.log.WithError(err).Error("session create failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
		return
	}
	if err := s.sessions.PutStory(id, &st); err != nil {
		s.log.WithError(err).Error("story persist failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not persist story"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":   id,
		"story":        st,
		"total_slides": len(st.Slides),
	})
}

func (s *Server) handleGenerateImage(c *gin.Context) {
	id := c.Param("session_id")
	slideNumber, err := strconv.Atoi(c.Param("slide_number"))
	if err != nil || slideNumber < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slide number"})
		return
	}

	var req struct {
		ImagePrompt string `json:"image_prompt"`
		StoryText   string `json:"story_text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ImagePrompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image_prompt is required"})
		return
	}

	avatar, err := s.sessions.Avatar(id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "avatar not found"})
			return
		}
		s.log.WithError(err).Error("avatar read failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read avatar"})
		return
	}

	img, err := s.images.Render(c.Request.Context(), avatar, req.ImagePrompt, req.StoryText)
	if err != nil {
		s.failUpstream(c, "image generation failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"image_base64": base64.StdEncoding.EncodeToString(img),
		"slide_number": slideNumber,
		"story_text":   req.StoryText,
		"image_prompt": req.ImagePrompt,
	})
}

func (s *Server) handleGetStory(c *gin.Context) {
	st, err := s.sessions.Story(c.Param("session_id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "story not found"})
			return
		}
		s.log.WithError(err).Error("story read failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read story"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "story": st})
}

func (s *Server) handleGetAvatar(c *gin.Context) {
	avatar, err := s.sessions.Avatar(c.Param("session_id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "avatar not found"})
			return
		}
		s.log.WithError(err).Error("avatar read failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read avatar"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"avatar_base64": base64.StdEncoding.EncodeToString(avatar),
		"filename":      "avatar.jpg",
	})
}

func (s *Server) handleCleanup(c *gin.Context) {
	// Cleanup is best-effort resource reclamation; a failed delete is
	// logged but never surfaced as a hard failure.
	if err := s.sessions.Delete(c.Param("session_id")); err != nil {
		s.log.WithError(err).Warn("cleanup failed")
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "cleanup deferred, will retry on sweep"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "session deleted"})
}

func (s *Server) handleStoryTool(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	result, err := s.tool.InvokableRun(c.Request.Context(), string(body))
	if err != nil {
		s.failUpstream(c, "story generation failed", err)
		return
	}
	c.Data(http.StatusOK, "application/json", []byte(result))
}

// failUpstream converts an upstream failure into the 500 JSON body the
// frontend expects. Raw model output for shape errors is already logged by
// the story client; here we only keep the classification.
func (s *Server) failUpstream(c *gin.Context, msg string, err error) {
	log := s.log.WithError(err)
	var shapeErr *story.ShapeError
	switch {
	case errors.As(err, &shapeErr):
		log = log.WithField("reason", "invalid_response_shape")
	case errors.Is(err, story.ErrMalformedJSON):
		log = log.WithField("reason", "malformed_json")
	case errors.Is(err, story.ErrUpstreamUnavailable):
		log = log.WithField("reason", "upstream_unavailable")
	}
	log.Error(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg + ": " + err.Error()})
}
