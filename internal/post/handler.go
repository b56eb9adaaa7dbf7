package post

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/postly/service/internal/media"
	"github.com/postly/service/internal/response"
)

// maxFormMemory caps how much of a multipart body is held in memory before
// spilling to temporary files.
const maxFormMemory = 32 << 20

// Handler holds HTTP handlers for post endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new post Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create godoc
//
//	@Summary		Create post
//	@Description	Create a post from multipart form fields title, description, and an optional jpg/jpeg/png image file.
//	@Tags			posts
//	@Accept			mpfd
//	@Produce		json
//	@Param			title		formData	string	true	"Post title"
//	@Param			description	formData	string	true	"Post description"
//	@Param			image		formData	file	false	"Image file (jpg, jpeg, png)"
//	@Success		201	{object}	response.Envelope{data=Post}
//	@Failure		400	{object}	response.Envelope
//	@Failure		415	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/posts [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, file, closeFile, ok := parseForm(w, r)
	if !ok {
		return
	}
	defer closeFile()

	p, err := h.svc.Create(r.Context(), in, file)
	if err != nil {
		log.Printf("post: create failed: %v", err)
		writeMutationError(w, h.svc, err, "failed to create post")
		return
	}

	response.Created(w, p)
}

// List godoc
//
//	@Summary		List posts
//	@Description	Returns every stored post.
//	@Tags			posts
//	@Produce		json
//	@Success		200	{object}	response.Envelope{data=[]Post}
//	@Failure		500	{object}	response.Envelope
//	@Router			/posts [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.svc.GetAll(r.Context())
	if err != nil {
		log.Printf("post: list failed: %v", err)
		response.Error(w, http.StatusInternalServerError, "failed to fetch posts")
		return
	}

	response.OK(w, posts)
}

// Get godoc
//
//	@Summary		Get post
//	@Description	Returns a single post by id.
//	@Tags			posts
//	@Produce		json
//	@Param			id	path		string	true	"Post ID"
//	@Success		200	{object}	response.Envelope{data=Post}
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/posts/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "post not found")
			return
		}
		log.Printf("post: get %s failed: %v", id, err)
		response.Error(w, http.StatusInternalServerError, "failed to fetch post")
		return
	}

	response.OK(w, p)
}

// Update godoc
//
//	@Summary		Update post
//	@Description	Replaces title and description; an optional image file replaces the stored image URL, omitting it keeps the current one.
//	@Tags			posts
//	@Accept			mpfd
//	@Produce		json
//	@Param			id			path		string	true	"Post ID"
//	@Param			title		formData	string	true	"Post title"
//	@Param			description	formData	string	true	"Post description"
//	@Param			image		formData	file	false	"Image file (jpg, jpeg, png)"
//	@Success		200	{object}	response.Envelope{data=Post}
//	@Failure		400	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		415	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/posts/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	in, file, closeFile, ok := parseForm(w, r)
	if !ok {
		return
	}
	defer closeFile()

	p, err := h.svc.Update(r.Context(), id, in, file)
	if err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "post not found")
			return
		}
		log.Printf("post: update %s failed: %v", id, err)
		writeMutationError(w, h.svc, err, "failed to update post")
		return
	}

	response.OK(w, p)
}

// Delete godoc
//
//	@Summary		Delete post
//	@Description	Removes a post permanently. Deleting an absent id is success.
//	@Tags			posts
//	@Param			id	path	string	true	"Post ID"
//	@Success		204
//	@Failure		500	{object}	response.Envelope
//	@Router			/posts/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.svc.Delete(r.Context(), id); err != nil {
		log.Printf("post: delete %s failed: %v", id, err)
		response.Error(w, http.StatusInternalServerError, "failed to delete post")
		return
	}

	response.NoContent(w)
}

// parseForm extracts the text fields and the optional image file from a
// multipart request. On failure it writes the error response itself and
// returns ok=false. closeFile must be deferred by the caller; it releases
// the file handle on every exit path.
func parseForm(w http.ResponseWriter, r *http.Request) (in Input, file *FileUpload, closeFile func(), ok bool) {
	closeFile = func() {}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return in, nil, closeFile, false
	}

	in = Input{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
	}

	f, header, err := r.FormFile("image")
	switch {
	case err == nil:
		closeFile = func() { _ = f.Close() }
		file = &FileUpload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Reader:      f,
		}
	case errors.Is(err, http.ErrMissingFile):
		// no image supplied
	default:
		response.BadRequest(w, "invalid image field")
		return in, nil, closeFile, false
	}

	return in, file, closeFile, true
}

// writeMutationError maps create/update failures onto the HTTP surface.
func writeMutationError(w http.ResponseWriter, svc *Service, err error, fallback string) {
	switch {
	case svc.IsInvalidInput(err):
		response.BadRequest(w, "title and description are required")
	case errors.Is(err, media.ErrUnsupportedMediaType):
		response.UnsupportedMediaType(w, "image must be jpg, jpeg, or png")
	case errors.Is(err, media.ErrUploadFailed):
		response.Error(w, http.StatusInternalServerError, "failed to upload image")
	default:
		response.Error(w, http.StatusInternalServerError, fallback)
	}
}
