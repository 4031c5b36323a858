package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"elib/httperr"
	"elib/middleware"
	"elib/models"
	"elib/service"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BookCatalog is the slice of the catalog store the book handlers need.
type BookCatalog interface {
	InsertBook(ctx context.Context, book *models.Book) (primitive.ObjectID, error)
	AllBooks(ctx context.Context) ([]models.Book, error)
	BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
	UpdateBook(ctx context.Context, id primitive.ObjectID, title, genre, coverImage, file string) (*models.Book, error)
	DeleteBook(ctx context.Context, id primitive.ObjectID) (int64, error)
}

// AssetStore uploads and deletes remote binary assets. Implemented by
// service.S3Service.
type AssetStore interface {
	Upload(ctx context.Context, folder, format string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type BooksHandler struct {
	Catalog   BookCatalog
	Assets    AssetStore
	UploadDir string
	MaxBytes  int64

	// removeFile, when set, replaces os.Remove for upload cleanup.
	removeFile func(string) error
}

type createBookResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

type updateBookResponse struct {
	Message           string       `json:"message"`
	UpdatedBookObject *models.Book `json:"updatedBookObject"`
}

type deleteBookResponse struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}

// Create registers a book: both payloads are buffered locally, uploaded to
// the asset store, and only then is the catalog record written, so a record
// never references a missing asset.
// POST /api/books/register
func (h *BooksHandler) Create(w http.ResponseWriter, r *http.Request) error {
	caller, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return httperr.Authentication("Authorization Token is Required")
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		return httperr.Validation("All Fields are Required")
	}
	title := r.FormValue("title")
	genre := r.FormValue("genre")
	description := r.FormValue("description")
	if title == "" || genre == "" {
		return httperr.Validation("All Fields are Required")
	}

	cover, err := h.receiveUpload(r, "coverImage")
	if err != nil {
		return err
	}
	if cover == nil {
		return httperr.Validation("All Fields are Required")
	}
	defer cover.discard()

	doc, err := h.receiveUpload(r, "file")
	if err != nil {
		return err
	}
	if doc == nil {
		return httperr.Validation("All Fields are Required")
	}
	defer doc.discard()

	coverURL, err := h.uploadAsset(r.Context(), cover, service.CoverFolder, mimeSubtype(cover.contentType))
	if err != nil {
		return httperr.Internal("Error While Uploading Book & Cover Image", err)
	}
	fileURL, err := h.uploadAsset(r.Context(), doc, service.DocFolder, "pdf")
	if err != nil {
		return httperr.Internal("Error While Uploading Book & Cover Image", err)
	}

	now := time.Now()
	book := &models.Book{
		Title:       title,
		Genre:       genre,
		Author:      caller,
		CoverImage:  coverURL,
		File:        fileURL,
		Description: description,
		CreatedAt:   now,
		ModifiedAt:  now,
	}
	id, err := h.Catalog.InsertBook(r.Context(), book)
	if err != nil {
		return httperr.Internal("Error While Creating Book", err)
	}

	// Record is in; failing to remove the local buffers is reported but the
	// book stays created.
	if err := cover.remove(); err != nil {
		return httperr.Internal("Error While Deleting Temporary Cover Image and File", err)
	}
	if err := doc.remove(); err != nil {
		return httperr.Internal("Error While Deleting Temporary Cover Image and File", err)
	}

	return writeJSON(w, http.StatusCreated, createBookResponse{
		Message: "Book Registered Successfully",
		ID:      id.Hex(),
	})
}

// Update replaces title/genre and, independently, either asset. A new asset
// is uploaded before the old one is deleted: on upload failure the record
// keeps referencing the old asset, on delete failure the old asset leaks and
// we carry on.
// PATCH /api/books/{bookId}
func (h *BooksHandler) Update(w http.ResponseWriter, r *http.Request) error {
	caller, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return httperr.Authentication("Authorization Token is Required")
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		return httperr.Validation("All Fields are Required")
	}
	title := r.FormValue("title")
	genre := r.FormValue("genre")
	if title == "" || genre == "" {
		return httperr.Validation("All Fields are Required")
	}

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "bookId"))
	if err != nil {
		return httperr.NotFound("Book Not Found")
	}
	book, err := h.Catalog.BookByID(r.Context(), id)
	if err != nil {
		return httperr.Internal("Error While Getting Book", err)
	}
	if book == nil {
		return httperr.NotFound("Book Not Found")
	}
	if book.Author != caller {
		return httperr.Authorization("You are not allowed to update this book")
	}

	coverURL := book.CoverImage
	fileURL := book.File

	cover, err := h.receiveUpload(r, "coverImage")
	if err != nil {
		return err
	}
	if cover != nil {
		defer cover.discard()
		coverURL, err = h.replaceAsset(r.Context(), cover, book.CoverImage,
			service.CoverFolder, mimeSubtype(cover.contentType), service.CoverExtensions)
		if err != nil {
			return err
		}
	}

	doc, err := h.receiveUpload(r, "file")
	if err != nil {
		return err
	}
	if doc != nil {
		defer doc.discard()
		fileURL, err = h.replaceAsset(r.Context(), doc, book.File,
			service.DocFolder, "pdf", service.DocExtensions)
		if err != nil {
			return err
		}
	}

	updated, err := h.Catalog.UpdateBook(r.Context(), id, title, genre, coverURL, fileURL)
	if err != nil {
		return httperr.Internal("Error While Updating Book", err)
	}
	if updated == nil {
		return httperr.NotFound("Book Not Found")
	}
	return writeJSON(w, http.StatusOK, updateBookResponse{
		Message:           "Book Updated Successfully",
		UpdatedBookObject: updated,
	})
}

// replaceAsset uploads the new payload, best-effort deletes the old remote
// asset, and removes the local buffer. A stored URL that does not parse is
// fatal; a failed remote delete is not.
func (h *BooksHandler) replaceAsset(ctx context.Context, up *upload, oldURL, folder, format string, allowedExts []string) (string, error) {
	newURL, err := h.uploadAsset(ctx, up, folder, format)
	if err != nil {
		return "", httperr.Internal("Error While Uploading New Asset", err)
	}
	if oldURL != "" {
		ref, err := service.ParseAssetRef(oldURL, folder, allowedExts)
		if err != nil {
			return "", httperr.Internal("Error While Extracting Asset Id :: Not in Proper Format", err)
		}
		if err := h.Assets.Delete(ctx, ref.Key()); err != nil {
			log.Printf("delete old asset %s: %v", ref.Key(), err)
		}
	}
	if err := up.remove(); err != nil {
		return "", httperr.Internal("Error While Deleting Temporary File from Local Storage", err)
	}
	return newURL, nil
}

// List returns every book, newest first.
// GET /api/books
func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) error {
	books, err := h.Catalog.AllBooks(r.Context())
	if err != nil {
		return httperr.Internal("Error While Getting Books", err)
	}
	if books == nil {
		books = []models.Book{}
	}
	return writeJSON(w, http.StatusOK, books)
}

// Get returns one book.
// GET /api/books/{bookId}
func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) error {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "bookId"))
	if err != nil {
		return httperr.NotFound("Book Not Found")
	}
	book, err := h.Catalog.BookByID(r.Context(), id)
	if err != nil {
		return httperr.Internal("Error While Getting Book", err)
	}
	if book == nil {
		return httperr.NotFound("Book Not Found")
	}
	return writeJSON(w, http.StatusOK, book)
}

// Delete removes both remote assets and then the catalog record. Parse
// failures abort before anything is removed; failed remote deletes are
// logged and the record still goes away.
// DELETE /api/books/{bookId}
func (h *BooksHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	caller, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return httperr.Authentication("Authorization Token is Required")
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "bookId"))
	if err != nil {
		return httperr.NotFound("Book Not Found")
	}
	book, err := h.Catalog.BookByID(r.Context(), id)
	if err != nil {
		return httperr.Internal("Error While Getting Book", err)
	}
	if book == nil {
		return httperr.NotFound("Book Not Found")
	}
	if book.Author != caller {
		return httperr.Authorization("You are not Authorized to Delete this book")
	}

	if book.CoverImage != "" {
		ref, err := service.ParseAssetRef(book.CoverImage, service.CoverFolder, service.CoverExtensions)
		if err != nil {
			return httperr.Internal("Error While Extracting Cover Image Id :: Not in Proper Format", err)
		}
		if err := h.Assets.Delete(r.Context(), ref.Key()); err != nil {
			log.Printf("delete cover asset %s: %v", ref.Key(), err)
		}
	}
	if book.File != "" {
		ref, err := service.ParseAssetRef(book.File, service.DocFolder, service.DocExtensions)
		if err != nil {
			return httperr.Internal("Error While Extracting Book Pdf Id :: Not in Proper Format", err)
		}
		if err := h.Assets.Delete(r.Context(), ref.Key()); err != nil {
			log.Printf("delete doc asset %s: %v", ref.Key(), err)
		}
	}

	count, err := h.Catalog.DeleteBook(r.Context(), id)
	if err != nil {
		return httperr.Internal("Error While Deleting Book", err)
	}
	return writeJSON(w, http.StatusOK, deleteBookResponse{
		Acknowledged: true,
		DeletedCount: count,
	})
}

type downloadResponse struct {
	URL string `json:"url"`
}

// Download returns a presigned URL for the book's document asset.
// GET /api/books/{bookId}/download
func (h *BooksHandler) Download(w http.ResponseWriter, r *http.Request) error {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "bookId"))
	if err != nil {
		return httperr.NotFound("Book Not Found")
	}
	book, err := h.Catalog.BookByID(r.Context(), id)
	if err != nil {
		return httperr.Internal("Error While Getting Book", err)
	}
	if book == nil {
		return httperr.NotFound("Book Not Found")
	}
	ref, err := service.ParseAssetRef(book.File, service.DocFolder, service.DocExtensions)
	if err != nil {
		return httperr.Internal("Error While Extracting Book Pdf Id :: Not in Proper Format", err)
	}
	url, err := h.Assets.PresignedGetURL(r.Context(), ref.Key(), 15*time.Minute)
	if err != nil {
		return httperr.Internal("Error While Generating Download URL", err)
	}
	return writeJSON(w, http.StatusOK, downloadResponse{URL: url})
}

// upload is a multipart payload buffered to a local temp file, mirroring how
// the uploads arrive on disk before they reach the asset store.
type upload struct {
	path        string
	contentType string
	removed     bool
	rm          func(string) error
}

func (u *upload) remove() error {
	if u.removed {
		return nil
	}
	if err := u.rm(u.path); err != nil {
		return err
	}
	u.removed = true
	return nil
}

// discard is the deferred cleanup for error paths; removal failures here are
// already reported by remove.
func (u *upload) discard() {
	if !u.removed {
		_ = os.Remove(u.path)
		u.removed = true
	}
}

// receiveUpload buffers the named multipart file to UploadDir. Returns
// (nil, nil) when the field is absent.
func (h *BooksHandler) receiveUpload(r *http.Request, field string) (*upload, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, httperr.Validation("All Fields are Required")
	}
	defer file.Close()

	path, err := bufferToDisk(file, h.UploadDir)
	if err != nil {
		return nil, httperr.Internal("Error While Buffering Uploaded File", err)
	}
	rm := h.removeFile
	if rm == nil {
		rm = os.Remove
	}
	return &upload{path: path, contentType: header.Header.Get("Content-Type"), rm: rm}, nil
}

func bufferToDisk(src multipart.File, dir string) (string, error) {
	tmp, err := os.CreateTemp(dir, "elib-upload-*")
	if err != nil {
		return "", err
	}
	defer tmp.Close()
	if _, err := io.Copy(tmp, src); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// uploadAsset streams the buffered payload to the asset store.
func (h *BooksHandler) uploadAsset(ctx context.Context, up *upload, folder, format string) (string, error) {
	f, err := os.Open(up.path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	contentType := up.contentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return h.Assets.Upload(ctx, folder, format, f, contentType)
}

// mimeSubtype turns "image/jpeg" into "jpeg", the format the asset store
// keys are built from.
func mimeSubtype(contentType string) string {
	if i := strings.LastIndex(contentType, "/"); i >= 0 {
		return contentType[i+1:]
	}
	return contentType
}
