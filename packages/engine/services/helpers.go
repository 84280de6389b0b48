package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"engine/errs"
	"engine/models"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	slug := strings.ToLower(name)
	slug = slugPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// notFound maps gorm's record-not-found onto the engine taxonomy.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.ErrNotFound
	}
	return err
}

// guardedMatchUpdate writes a match mutation conditioned on the version
// the caller observed. The version check lives in the WHERE clause, so
// two concurrent writers cannot both land even if they raced past the
// in-memory check.
func guardedMatchUpdate(db *gorm.DB, matchID uint, observed uint, updates map[string]interface{}) error {
	if _, ok := updates["version"]; !ok {
		updates["version"] = observed + 1
	}
	res := db.Model(&models.Match{}).
		Where("id = ? AND version = ?", matchID, observed).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var current models.Match
		if err := db.Select("version").First(&current, matchID).Error; err != nil {
			return notFound(err)
		}
		return &errs.ConflictError{Entity: "match", ID: matchID, Expected: observed, Actual: current.Version}
	}
	return nil
}

func totalPages(total int64, pageSize int) int {
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func (s *TournamentService) generateUniqueSlug(name string) string {
	base := slugify(name)
	if base == "" {
		base = "tournament"
	}
	slug := base
	for i := 2; ; i++ {
		var count int64
		s.db.Model(&models.Tournament{}).Where("slug = ?", slug).Count(&count)
		if count == 0 {
			return slug
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}
