package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmhlko/post-feed/internal/model"
	"github.com/mmhlko/post-feed/internal/service"
)

type PostHandler struct {
	svc *service.PostService
}

func NewPostHandler(svc *service.PostService) *PostHandler {
	return &PostHandler{svc: svc}
}

type updatePostJSON struct {
	Text           *string  `json:"text"`
	RemoveImageIDs []string `json:"removeImageIds"`
}

// ListPosts godoc
// @Summary List posts
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size (default 5)"
// @Param offset query int false "Offset (default 0)"
// @Param sort query string false "asc or desc by creation time (default desc)"
// @Success 200 {object} model.PostListResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /posts [get]
func (h *PostHandler) ListPosts(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context(), model.PostListQuery{
		Limit:  queryInt(c, "limit", 0),
		Offset: queryInt(c, "offset", 0),
		Sort:   c.Query("sort"),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetPost godoc
// @Summary Get a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} model.Post
// @Failure 404 {object} model.ErrorResponse
// @Router /posts/{id} [get]
func (h *PostHandler) GetPost(c *gin.Context) {
	post, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// CreatePost godoc
// @Summary Create a post
// @Description Text plus up to 5 images in the images field.
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param text formData string false "Post text"
// @Param images formData file false "Images"
// @Success 201 {object} model.Post
// @Failure 400 {object} model.ErrorResponse
// @Router /posts [post]
func (h *PostHandler) CreatePost(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	text := c.PostForm("text")
	var images []model.Upload
	if form, err := c.MultipartForm(); err == nil {
		images, err = readUploads(form.File["images"])
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file"})
			return
		}
	}

	post, err := h.svc.Create(c.Request.Context(), user.ID, text, images)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// UpdatePost godoc
// @Summary Update own post
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param text formData string false "New text"
// @Param removeImageIds formData string false "Image IDs to remove (removeImageIds[] is accepted too)"
// @Param images formData file false "Images to add"
// @Success 200 {object} model.Post
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /posts/{id} [patch]
func (h *PostHandler) UpdatePost(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var (
		text      *string
		removeIDs []string
		images    []model.Upload
	)
	if strings.HasPrefix(c.ContentType(), "application/json") {
		var req updatePostJSON
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		text, removeIDs = req.Text, req.RemoveImageIDs
	} else {
		if value, ok := c.GetPostForm("text"); ok {
			text = &value
		}
		removeIDs = parseIDList(append(c.PostFormArray("removeImageIds"), c.PostFormArray("removeImageIds[]")...))
		if form, err := c.MultipartForm(); err == nil {
			images, err = readUploads(form.File["images"])
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file"})
				return
			}
		}
	}

	post, err := h.svc.Update(c.Request.Context(), user.ID, c.Param("id"), text, removeIDs, images)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// DeletePost godoc
// @Summary Delete own post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} model.OKResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /posts/{id} [delete]
func (h *PostHandler) DeletePost(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.svc.Delete(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.OKResponse{OK: true})
}

// queryInt falls back on a missing or non-numeric value; the service
// applies the paging defaults.
func queryInt(c *gin.Context, key string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return fallback
	}
	return n
}
