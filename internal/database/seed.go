package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/domain"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/security"
)

const defaultAdminEmail = "admin@bubblescafe.example"

var samplePosts = []struct {
	title   string
	slug    string
	theme   string
	content string
	excerpt string
}{
	{
		title:   "The Basement Door",
		slug:    "the-basement-door",
		theme:   "psychological",
		content: "The door had been painted shut for thirty years, and every owner of the house had quietly agreed to leave it that way.",
		excerpt: "Some doors stay shut for a reason.",
	},
	{
		title:   "Static Between Stations",
		slug:    "static-between-stations",
		theme:   "supernatural",
		content: "At 3 AM the radio picks up a station that broadcasts nothing but a slow, patient breathing.",
		excerpt: "Late-night radio carries more than music.",
	},
}

// SeedReport describes what a seed run changed. GeneratedPassword is only
// set on the run that created the admin account; record it, it is not
// stored anywhere in plain text.
type SeedReport struct {
	Noop              bool
	CreatedAdmin      bool
	CreatedPosts      int
	AdminEmail        string
	GeneratedPassword string
}

// SeedSync makes sure the baseline data exists: one admin account and the
// sample stories. Safe to run repeatedly.
func SeedSync(db *gorm.DB, adminEmail string) (*SeedReport, error) {
	adminEmail = strings.TrimSpace(strings.ToLower(adminEmail))
	if adminEmail == "" {
		adminEmail = defaultAdminEmail
	}
	report := &SeedReport{AdminEmail: adminEmail}

	var admin domain.User
	err := db.Where("email = ?", adminEmail).First(&admin).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		password, perr := security.NewRandomString(18)
		if perr != nil {
			return nil, fmt.Errorf("generate admin password: %w", perr)
		}
		hash, herr := security.HashPassword(password)
		if herr != nil {
			return nil, fmt.Errorf("hash admin password: %w", herr)
		}
		admin = domain.User{
			Username:     "admin",
			Email:        adminEmail,
			PasswordHash: hash,
			IsAdmin:      true,
		}
		if cerr := db.Create(&admin).Error; cerr != nil {
			return nil, fmt.Errorf("create admin user: %w", cerr)
		}
		report.CreatedAdmin = true
		report.GeneratedPassword = password
	case err != nil:
		return nil, fmt.Errorf("lookup admin user: %w", err)
	}

	for _, sample := range samplePosts {
		var count int64
		if cerr := db.Model(&domain.Post{}).Where("slug = ?", sample.slug).Count(&count).Error; cerr != nil {
			return nil, fmt.Errorf("check sample post %q: %w", sample.slug, cerr)
		}
		if count > 0 {
			continue
		}
		post := domain.Post{
			Slug:          sample.slug,
			Title:         sample.title,
			Content:       sample.content,
			Excerpt:       sample.excerpt,
			AuthorID:      admin.ID,
			ThemeCategory: sample.theme,
			ReadingTime:   1,
			Published:     true,
			CreatedAt:     time.Now().UTC(),
		}
		if cerr := db.Create(&post).Error; cerr != nil {
			return nil, fmt.Errorf("create sample post %q: %w", sample.slug, cerr)
		}
		report.CreatedPosts++
	}

	report.Noop = !report.CreatedAdmin && report.CreatedPosts == 0
	return report, nil
}

// PromoteAdmin flips the admin flag on an existing account, the escape
// hatch when the seeded admin password was lost.
func PromoteAdmin(db *gorm.DB, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return errors.New("email is required")
	}
	res := db.Model(&domain.User{}).Where("email = ?", email).Update("is_admin", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
