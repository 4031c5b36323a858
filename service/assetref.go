package service

import (
	"errors"
	"fmt"
	"strings"
)

// Asset store folders and the file extensions accepted in each.
const (
	CoverFolder = "covers"
	DocFolder   = "docs"
)

var (
	CoverExtensions = []string{"jpg", "jpeg", "png", "gif", "bmp", "webp"}
	DocExtensions   = []string{"pdf"}
)

// ErrBadAssetRef marks a stored URL that does not follow the
// {folder}/{id}.{ext} naming convention.
var ErrBadAssetRef = errors.New("asset url does not match {folder}/{id}.{ext}")

// AssetRef identifies an object in the asset store.
type AssetRef struct {
	Folder string
	ID     string
	Ext    string
}

// Key is the object key to delete, the inverse of the upload naming scheme.
func (r AssetRef) Key() string {
	return r.Folder + "/" + r.ID + "." + r.Ext
}

// ParseAssetRef extracts the asset identifier from a stored URL whose path
// ends in {folder}/{id}.{ext}. The id may contain letters, digits, '-' and
// '_'; ext must be one of allowedExts.
func ParseAssetRef(rawURL, folder string, allowedExts []string) (AssetRef, error) {
	segments := strings.Split(rawURL, "/")
	if len(segments) < 2 {
		return AssetRef{}, fmt.Errorf("%w: %q", ErrBadAssetRef, rawURL)
	}
	if segments[len(segments)-2] != folder {
		return AssetRef{}, fmt.Errorf("%w: %q is not under %q", ErrBadAssetRef, rawURL, folder)
	}
	file := segments[len(segments)-1]
	dot := strings.LastIndex(file, ".")
	if dot <= 0 || dot == len(file)-1 {
		return AssetRef{}, fmt.Errorf("%w: %q", ErrBadAssetRef, rawURL)
	}
	id, ext := file[:dot], file[dot+1:]
	if !validAssetID(id) {
		return AssetRef{}, fmt.Errorf("%w: bad id %q", ErrBadAssetRef, id)
	}
	if !contains(allowedExts, ext) {
		return AssetRef{}, fmt.Errorf("%w: extension %q not allowed in %q", ErrBadAssetRef, ext, folder)
	}
	return AssetRef{Folder: folder, ID: id, Ext: ext}, nil
}

func validAssetID(id string) bool {
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return id != ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
