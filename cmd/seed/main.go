package main

import (
	"time"

	"github.com/sirupsen/logrus"

	"fitdesk/internal/config"
	"fitdesk/internal/database"
	"fitdesk/internal/domain/member"
	"fitdesk/internal/domain/plan"
	"fitdesk/internal/modules/auth"
)

func main() {
	log := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config load failed")
	}

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}

	log.Info("running migrations")
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("migration failed")
	}

	log.Info("cleaning old data")
	db.Exec("DELETE FROM lifecycle_events")
	db.Exec("DELETE FROM bookings")
	db.Exec("DELETE FROM plan_holds")
	db.Exec("DELETE FROM member_plans")
	db.Exec("DELETE FROM plan_templates")
	db.Exec("DELETE FROM staff_users")
	db.Exec("DELETE FROM members")
	db.Exec("DELETE FROM orgs")

	org := member.Org{Name: "Ironworks Gym", Timezone: "Europe/Berlin", IsActive: true}
	if err := db.Create(&org).Error; err != nil {
		log.WithError(err).Fatal("seed org failed")
	}

	adminHash, err := auth.HashPassword("admin123")
	if err != nil {
		log.WithError(err).Fatal("hash failed")
	}
	staffHash, err := auth.HashPassword("staff123")
	if err != nil {
		log.WithError(err).Fatal("hash failed")
	}

	staff := []member.StaffUser{
		{OrgID: org.ID, Email: "admin@ironworks.test", PasswordHash: adminHash, Role: member.RoleAdmin, IsActive: true},
		{OrgID: org.ID, Email: "desk@ironworks.test", PasswordHash: staffHash, Role: member.RoleStaff, IsActive: true},
	}
	if err := db.Create(&staff).Error; err != nil {
		log.WithError(err).Fatal("seed staff failed")
	}

	members := []member.Member{
		{OrgID: org.ID, FirstName: "Anna", LastName: "Keller", Email: "anna@example.test", Phone: "+49 151 0000001", IsActive: true},
		{OrgID: org.ID, FirstName: "Milan", LastName: "Novak", Email: "milan@example.test", Phone: "+49 151 0000002", IsActive: true},
		{OrgID: org.ID, FirstName: "Sora", LastName: "Tanaka", Email: "sora@example.test", IsActive: true},
	}
	if err := db.Create(&members).Error; err != nil {
		log.WithError(err).Fatal("seed members failed")
	}

	ten := 10
	templates := []plan.Template{
		{
			OrgID:        org.ID,
			Name:         "Monthly Unlimited",
			Description:  "Unlimited gym access for 30 days",
			Kind:         plan.KindMembership,
			Venue:        plan.VenueInPerson,
			Price:        59.90,
			Currency:     "EUR",
			DurationDays: 30,
			IsActive:     true,
		},
		{
			OrgID:        org.ID,
			Name:         "10-Class Pack",
			Description:  "Ten group classes, valid 90 days",
			Kind:         plan.KindProgram,
			Venue:        plan.VenueInPerson,
			Price:        120,
			Currency:     "EUR",
			DurationDays: 90,
			SessionQuota: &ten,
			IsActive:     true,
		},
		{
			OrgID:        org.ID,
			Name:         "Annual Membership",
			Description:  "Full year, best value",
			Kind:         plan.KindMembership,
			Venue:        plan.VenueInPerson,
			Price:        540,
			Currency:     "EUR",
			DurationDays: 365,
			IsActive:     true,
		},
	}
	if err := db.Create(&templates).Error; err != nil {
		log.WithError(err).Fatal("seed templates failed")
	}

	log.WithFields(logrus.Fields{
		"org":       org.ID,
		"staff":     len(staff),
		"members":   len(members),
		"templates": len(templates),
		"at":        time.Now().Format(time.RFC3339),
	}).Info("seed complete")
}
