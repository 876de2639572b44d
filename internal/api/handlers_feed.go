package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/lox/agroconnect/internal/models"
	"github.com/lox/agroconnect/internal/store"
)

type CreatePostRequest struct {
	Author   string `json:"author"`
	Location string `json:"location"`
	Content  string `json:"content"`
	Image    string `json:"image"`
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	posts, err := s.store.ListPosts(limit)
	if err != nil {
		log.Printf("api: list posts: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load posts")
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	post, err := s.store.CreatePost(store.NewPost{
		Author:   req.Author,
		Location: req.Location,
		Content:  req.Content,
		ImageURL: req.Image,
	})
	if errors.Is(err, store.ErrEmptyContent) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		log.Printf("api: create post: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create post")
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (s *Server) handleLikePost(w http.ResponseWriter, r *http.Request) {
	s.updatePost(w, r.PathValue("id"), s.store.ToggleLike)
}

func (s *Server) handleSharePost(w http.ResponseWriter, r *http.Request) {
	s.updatePost(w, r.PathValue("id"), s.store.SharePost)
}

func (s *Server) updatePost(w http.ResponseWriter, id string, update func(string) (*models.Post, error)) {
	post, err := update(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	if err != nil {
		log.Printf("api: update post %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to update post")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	name, err := s.store.FarmerName()
	if err != nil {
		log.Printf("api: profile: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": name})
}

type UpdateProfileRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	name, err := s.store.SetFarmerName(req.Name)
	if errors.Is(err, store.ErrEmptyName) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		log.Printf("api: update profile: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": name})
}
