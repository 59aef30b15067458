package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// defaultInterests is the static reference data seeded at startup.
var defaultInterests = []Interest{
	{Name: "Sport", Category: "Activités physiques"},
	{Name: "Musique", Category: "Arts"},
	{Name: "Voyage", Category: "Découverte"},
	{Name: "Cuisine", Category: "Gastronomie"},
	{Name: "Art", Category: "Créativité"},
	{Name: "Lecture", Category: "Culture"},
	{Name: "Cinéma", Category: "Divertissement"},
	{Name: "Nature", Category: "Environnement"},
	{Name: "Technologie", Category: "Innovation"},
	{Name: "Mode", Category: "Style"},
	{Name: "Photographie", Category: "Créativité"},
	{Name: "Danse", Category: "Arts"},
	{Name: "Théâtre", Category: "Arts"},
	{Name: "Jeux vidéo", Category: "Divertissement"},
	{Name: "Yoga", Category: "Bien-être"},
	{Name: "Méditation", Category: "Bien-être"},
}

// SeedDefaultInterests inserts the default interest catalog. Idempotent;
// called on every startup.
func SeedDefaultInterests(db *gorm.DB) error {
	for _, it := range defaultInterests {
		res := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&Interest{Name: it.Name, Category: it.Category})
		if res.Error != nil {
			return fmt.Errorf("failed to seed interest %q: %w", it.Name, res.Error)
		}
	}
	return nil
}

// SeedTestData resets the database and populates it with demo profiles.
//
// Behavior:
//  1. Clears users, likes, matches, messages, notifications and join rows.
//  2. Creates 20 users (10 homme, 10 femme) with hashed passwords and
//     interleaved cities/interests.
//  3. Generates likes with ~70% probability per candidate pair and promotes
//     mutual pairs to matches with their notifications.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for _, table := range []string{"notifications", "messages", "matches", "likes", "user_interests", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if err := SeedDefaultInterests(db); err != nil {
		return err
	}

	log.Println("Cleared existing data")

	cities := []string{"Paris", "Lyon", "Marseille", "Bordeaux", "Lille"}

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	for i := 1; i <= 20; i++ {
		gender, interestedIn := "homme", "femmes"
		if i > 10 {
			gender, interestedIn = "femme", "hommes"
		}

		user := User{
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
			FirstName:    fmt.Sprintf("Prenom%d", i),
			LastName:     fmt.Sprintf("Nom%d", i),
			BirthDate:    time.Date(1980+r.Intn(25), time.Month(1+r.Intn(12)), 1+r.Intn(28), 0, 0, 0, 0, time.UTC),
			Gender:       gender,
			InterestedIn: interestedIn,
			City:         cities[i%len(cities)],
			Bio:          "Profil de démonstration",
			IsActive:     true,
			LastActive:   time.Now().Add(-time.Duration(r.Intn(500)) * time.Hour),
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}

		var interests []Interest
		if err := db.Order("id").Limit(16).Find(&interests).Error; err == nil && len(interests) > 0 {
			for j := 0; j < 3; j++ {
				ui := UserInterest{UserID: user.ID, InterestID: interests[r.Intn(len(interests))].ID}
				db.Clauses(clause.OnConflict{DoNothing: true}).Create(&ui)
			}
		}
	}
	log.Println("Seeded 20 users.")

	var users []User
	if err := db.Order("id").Find(&users).Error; err != nil {
		return err
	}

	counter := 0
	for _, actor := range users {
		for _, candidate := range users {
			if actor.ID == candidate.ID || actor.Gender == candidate.Gender {
				continue
			}
			if r.Intn(100) >= 70 {
				continue
			}

			like := Like{LikerID: actor.ID, LikedID: candidate.ID}
			if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
				return fmt.Errorf("failed to seed like: %w", err)
			}

			// promote to a match when the reverse like already landed
			var reverse int64
			db.Model(&Like{}).Where("liker_id = ? AND liked_id = ?", candidate.ID, actor.ID).Count(&reverse)
			if reverse > 0 {
				a, b := actor.ID, candidate.ID
				if a > b {
					a, b = b, a
				}
				match := Match{User1ID: a, User2ID: b}
				db.Clauses(clause.OnConflict{DoNothing: true}).Create(&match)

				expires := time.Now().Add(24 * time.Hour)
				for _, uid := range []uint64{a, b} {
					db.Create(&Notification{
						UserID:    uid,
						Message:   "Vous avez un nouveau match !",
						Kind:      NotificationKindMatch,
						ExpiresAt: expires,
					})
				}
				counter++
			}
		}
	}
	log.Printf("Seeded likes with %d matches.", counter)

	return nil
}
