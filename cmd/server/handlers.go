package main

import (
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/lychee-technology/classifieds"
	"go.uber.org/zap"
)

// mustActor is only called behind requireActor.
func mustActor(r *http.Request) classifieds.Actor {
	actor, _ := actorFrom(r.Context())
	return actor
}

// GET /api/v1/listings?category_id=...&attr.year=gte:2010&page=...
func (s *Server) queryListings(w http.ResponseWriter, r *http.Request) error {
	query, err := parseListingQuery(r.URL.Query())
	if err != nil {
		return err
	}
	result, err := s.listings.QueryListings(r.Context(), query)
	if err != nil {
		return err
	}
	return writeSuccess(w, http.StatusOK, result)
}

func (s *Server) createListing(w http.ResponseWriter, r *http.Request) error {
	var req classifieds.CreateListingRequest
	if err := readJSONBody(r, &req); err != nil {
		return err
	}
	view, err := s.listings.CreateListing(r.Context(), mustActor(r), &req)
	if err != nil {
		return err
	}
	return writeSuccess(w, http.StatusCreated, view)
}

func (s *Server) getListing(w http.ResponseWriter, r *http.Request) error {
	listingID, err := uuidParam(r, "listingID")
	if err != nil {
		return err
	}
	view, err := s.listings.GetListing(r.Context(), listingID)
	if err != nil {
		return err
	}
	return writeSuccess(w, http.StatusOK, view)
}

func (s *Server) updateListing(w http.ResponseWriter, r *http.Request) error {
	listingID, err := uuidParam(r, "listingID")
	if err != nil {
		return err
	}
	var patch classifieds.ListingPatch
	if err := readJSONBody(r, &patch); err != nil {
		return err
	}
	view, err := s.listings.UpdateListing(r.Context(), mustActor(r), listingID, &patch)
	if err != nil {
		return err
	}
	return writeSuccess(w, http.StatusOK, view)
}

func (s *Server) deleteListing(w http.ResponseWriter, r *http.Request) error {
	listingID, err := uuidParam(r, "listingID")
	if err != nil {
		return err
	}
	if err := s.listings.DeleteListing(r.Context(), mustActor(r), listingID); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) error {
	categories, err := s.categories.ListCategories(r.Context())
	if err != nil {
		return err
	}
	return writeSuccess(w, http.StatusOK, categories)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) error {
	var input classifieds.CategoryInput
	if err := readJSONBody(r, &input); err != nil {
		return err
	}
	category, err := s.categories.CreateCategory(r.Context(), mustActor(r), &input)
	if err != nil {
		return err
	}
	return writeSuccess(w, http.StatusCreated, category)
}

func (s *Server) getCategory(w http.ResponseWriter, r *http.Request) error {
	categoryID, err := uuidParam(r, "categoryID")
	if err != nil {
		return err
	}
	detail, err := s.categories.GetCategory(r.Context(), categoryID)
	if err != nil {
		return err
	}
	return writeSuccess(w, http.StatusOK, detail)
}

// GET /api/v1/categories/{categoryID}/schema returns the JSON Schema of the
// attribute object listings of the category accept.
func (s *Server) getCategorySchema(w http.ResponseWriter, r *http.Request) error {
	categoryID, err := uuidParam(r, "categoryID")
	if err != nil {
		return err
	}
	detail, err := s.categories.GetCategory(r.Context(), categoryID)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	return jsonEncode(w, classifieds.CategoryJSONSchema(detail.Category, detail.Attributes))
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request) error {
	categoryID, err := uuidParam(r, "categoryID")
	if err != nil {
		return err
	}
	var input classifieds.CategoryInput
	if err := readJSONBody(r, &input); err != nil {
		return err
	}
	category, err := s.categories.UpdateCategory(r.Context(), mustActor(r), categoryID, &input)
	if err != nil {
		return err
	}
	return writeSuccess(w, http.StatusOK, category)
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) error {
	categoryID, err := uuidParam(r, "categoryID")
	if err != nil {
		return err
	}
	if err := s.categories.DeleteCategory(r.Context(), mustActor(r), categoryID); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

type replaceAttributesRequest struct {
	Attributes []classifieds.AttributeDefinition `json:"attributes" validate:"dive"`
}

// PUT /api/v1/categories/{categoryID}/attributes replaces the attribute schema.
func (s *Server) replaceAttributes(w http.ResponseWriter, r *http.Request) error {
	categoryID, err := uuidParam(r, "categoryID")
	if err != nil {
		return err
	}
	var req replaceAttributesRequest
	if err := readJSONBody(r, &req); err != nil {
		return err
	}
	detail, err := s.categories.ReplaceAttributeDefinitions(r.Context(), mustActor(r), categoryID, req.Attributes)
	if err != nil {
		return err
	}
	return writeSuccess(w, http.StatusOK, detail)
}

type commentRequest struct {
	Content  string     `json:"content" validate:"required,max=4000"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) error {
	listingID, err := uuidParam(r, "listingID")
	if err != nil {
		return err
	}
	comments, err := s.comments.ListComments(r.Context(), listingID)
	if err != nil {
		return err
	}
	return writeSuccess(w, http.StatusOK, comments)
}

func (s *Server) createComment(w http.ResponseWriter, r *http.Request) error {
	listingID, err := uuidParam(r, "listingID")
	if err != nil {
		return err
	}
	var req commentRequest
	if err := readJSONBody(r, &req); err != nil {
		return err
	}
	comment, err := s.comments.CreateComment(r.Context(), mustActor(r), listingID, req.Content, req.ParentID)
	if err != nil {
		return err
	}
	return writeSuccess(w, http.StatusCreated, comment)
}

func (s *Server) updateComment(w http.ResponseWriter, r *http.Request) error {
	commentID, err := uuidParam(r, "commentID")
	if err != nil {
		return err
	}
	var req commentRequest
	if err := readJSONBody(r, &req); err != nil {
		return err
	}
	comment, err := s.comments.UpdateComment(r.Context(), mustActor(r), commentID, req.Content)
	if err != nil {
		return err
	}
	return writeSuccess(w, http.StatusOK, comment)
}

func (s *Server) deleteComment(w http.ResponseWriter, r *http.Request) error {
	commentID, err := uuidParam(r, "commentID")
	if err != nil {
		return err
	}
	if err := s.comments.DeleteComment(r.Context(), mustActor(r), commentID); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// POST /api/v1/images stores the multipart "file" field and returns its URL
// for use in a listing's images.
func (s *Server) uploadImage(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		return badRequest("file", "multipart field file is required: %v", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return badRequest("file", "read upload: %v", err)
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return badRequest("file", "unsupported content type %s", contentType)
	}

	url, err := s.blobs.Store(r.Context(), header.Filename, contentType, data)
	if err != nil {
		return err
	}
	zap.S().Infow("image stored", "url", url, "bytes", len(data), "actor", mustActor(r).UserID)
	return writeSuccess(w, http.StatusCreated, map[string]string{"url": url})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) error {
	users, err := s.users.ListUsers(r.Context(), mustActor(r))
	if err != nil {
		return err
	}
	return writeSuccess(w, http.StatusOK, users)
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) error {
	user, err := s.users.GetUser(r.Context(), mustActor(r).UserID)
	if err != nil {
		return err
	}
	return writeSuccess(w, http.StatusOK, user)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) error {
	var patch classifieds.UserProfilePatch
	if err := readJSONBody(r, &patch); err != nil {
		return err
	}
	user, err := s.users.UpdateProfile(r.Context(), mustActor(r), &patch)
	if err != nil {
		return err
	}
	return writeSuccess(w, http.StatusOK, user)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) error {
	userID, err := uuidParam(r, "userID")
	if err != nil {
		return err
	}
	if err := s.users.DeleteUser(r.Context(), mustActor(r), userID); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
