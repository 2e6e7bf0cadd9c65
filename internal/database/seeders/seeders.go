package seeders

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"geethika.lk/app/internal/config"
	"geethika.lk/app/internal/modules/categories"
	"geethika.lk/app/internal/modules/studio"
	"geethika.lk/app/internal/modules/users"
)

var defaultCategories = []categories.Input{
	{Name: "Photo Frames", Slug: "photo-frames", Description: "Wooden, acrylic and LED frames for your memories.", SortOrder: 1, IsActive: true},
	{Name: "Custom Mugs", Slug: "custom-mugs", Description: "Printed mugs with your photos and names.", SortOrder: 2, IsActive: true},
	{Name: "T-Shirts", Slug: "t-shirts", Description: "Personalised t-shirts for events and gifts.", SortOrder: 3, IsActive: true},
	{Name: "Printing", Slug: "printing", Description: "Photo prints, canvas and large-format printing.", SortOrder: 4, IsActive: true},
	{Name: "Gift Items", Slug: "gift-items", Description: "Keytags, cushions, crystals and more.", SortOrder: 5, IsActive: true},
}

var defaultServices = []studio.Input{
	{Name: "Wedding Photography", Slug: "wedding-photography", Description: "Full-day coverage, albums and pre-shoots.", StartingPriceCents: 7500000, SortOrder: 1, IsActive: true},
	{Name: "Studio Portraits", Slug: "studio-portraits", Description: "Family, kids and graduation portraits in our studio.", StartingPriceCents: 500000, SortOrder: 2, IsActive: true},
	{Name: "Passport & ID Photos", Slug: "passport-photos", Description: "Instant photos to embassy and NIC specifications.", StartingPriceCents: 50000, SortOrder: 3, IsActive: true},
	{Name: "Event Videography", Slug: "event-videography", Description: "Highlight films and full event videos.", StartingPriceCents: 4500000, SortOrder: 4, IsActive: true},
	{Name: "Graphic Design", Slug: "graphic-design", Description: "Invitations, banners and social media designs.", StartingPriceCents: 250000, SortOrder: 5, IsActive: true},
}

// Run seeds reference data and the bootstrap super admin. Every step checks
// before inserting so reruns are no-ops.
func Run(ctx context.Context, db *gorm.DB, boot config.BootstrapConfig, log *zap.Logger) error {
	if err := SeedCategories(ctx, db, log); err != nil {
		return err
	}
	if err := SeedStudioServices(ctx, db, log); err != nil {
		return err
	}
	return SeedSuperAdmin(ctx, db, boot, log)
}

func SeedCategories(ctx context.Context, db *gorm.DB, log *zap.Logger) error {
	svc := categories.NewService(db)
	created := 0
	for _, in := range defaultCategories {
		var n int64
		if err := db.WithContext(ctx).Model(&categories.Category{}).Where("slug = ?", in.Slug).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			log.Debug("category exists, skipping", zap.String("slug", in.Slug))
			continue
		}
		if _, err := svc.Create(ctx, in); err != nil {
			log.Error("category seed failed", zap.String("slug", in.Slug), zap.Error(err))
			return err
		}
		created++
	}
	log.Info("categories seeded", zap.Int("created", created))
	return nil
}

func SeedStudioServices(ctx context.Context, db *gorm.DB, log *zap.Logger) error {
	svc := studio.NewService(db)
	created := 0
	for _, in := range defaultServices {
		var n int64
		if err := db.WithContext(ctx).Model(&studio.StudioService{}).Where("slug = ?", in.Slug).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			log.Debug("service exists, skipping", zap.String("slug", in.Slug))
			continue
		}
		if _, err := svc.Create(ctx, in); err != nil {
			log.Error("service seed failed", zap.String("slug", in.Slug), zap.Error(err))
			return err
		}
		created++
	}
	log.Info("studio services seeded", zap.Int("created", created))
	return nil
}

// SeedSuperAdmin promotes the configured account, creating it first when a
// password is configured.
func SeedSuperAdmin(ctx context.Context, db *gorm.DB, boot config.BootstrapConfig, log *zap.Logger) error {
	if boot.SuperAdminEmail == "" {
		log.Info("SUPER_ADMIN_EMAIL not set, skipping super admin")
		return nil
	}
	admins := users.NewAdminService(db, users.NewService(db))

	u, err := admins.Promote(ctx, boot.SuperAdminEmail, users.RoleSuperAdmin)
	if err == nil {
		log.Info("super admin ensured", zap.String("email", u.Email))
		return nil
	}
	if !errors.Is(err, users.ErrNotFound) {
		return err
	}
	if boot.SuperAdminPassword == "" {
		log.Warn("super admin account missing and SUPER_ADMIN_PASSWORD not set", zap.String("email", boot.SuperAdminEmail))
		return nil
	}
	u, err = admins.CreateAdmin(ctx, users.CreateAdminInput{
		Email:    boot.SuperAdminEmail,
		Password: boot.SuperAdminPassword,
		FullName: boot.SuperAdminName,
		Role:     users.RoleSuperAdmin,
	})
	if err != nil {
		log.Error("super admin creation failed", zap.Error(err))
		return err
	}
	log.Info("super admin created", zap.String("email", u.Email))
	return nil
}
