package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var hexColorRe = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)

// GenerateInviteCode returns an 8-character uppercase hex token.
func GenerateInviteCode() string {
	b := make([]byte, 4)
	rand.Read(b)
	return strings.ToUpper(hex.EncodeToString(b))
}

// GenerateFileName builds a unique filename preserving the extension.
func GenerateFileName(originalName string) string {
	b := make([]byte, 4)
	rand.Read(b)
	ext := filepath.Ext(originalName)
	base := SanitizeFilename(strings.TrimSuffix(filepath.Base(originalName), ext))
	return fmt.Sprintf("%s-%d-%s%s", base, time.Now().UnixMilli(), hex.EncodeToString(b), ext)
}

func IsValidHexColor(color string) bool {
	return hexColorRe.MatchString(color)
}

var unsafeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9.-]`)
var underscoreRunRe = regexp.MustCompile(`_+`)

func SanitizeFilename(filename string) string {
	s := unsafeFilenameRe.ReplaceAllString(filename, "_")
	s = underscoreRunRe.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

type Pagination struct {
	Page  int
	Limit int
	Skip  int
}

// GetPagination clamps page/limit query values into a usable window.
func GetPagination(pageStr, limitStr string, defaultLimit int) Pagination {
	page, _ := strconv.Atoi(pageStr)
	limit, _ := strconv.Atoi(limitStr)

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = defaultLimit
	}

	return Pagination{
		Page:  page,
		Limit: limit,
		Skip:  (page - 1) * limit,
	}
}
