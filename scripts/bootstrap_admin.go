package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/linesmerrill/forensic-case-api/config"
	"github.com/linesmerrill/forensic-case-api/databases"
	"github.com/linesmerrill/forensic-case-api/models"
	"github.com/linesmerrill/forensic-case-api/policy"
)

// Creates the first super administrator, or promotes and resets an existing
// account with the same e-mail. Reads DB_URI and DB_NAME like the API.
// Usage: go run scripts/bootstrap_admin.go <email> <name> <password>
func main() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: go run scripts/bootstrap_admin.go <email> <name> <password>")
		fmt.Println("Example: go run scripts/bootstrap_admin.go chefe@pericia.local \"Chefia Pericial\" 0i2rinbcp12yc31h")
		os.Exit(1)
	}
	_ = godotenv.Load()

	email := strings.ToLower(strings.TrimSpace(os.Args[1]))
	name := strings.TrimSpace(os.Args[2])
	password := os.Args[3]

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Printf("Error generating hash: %v\n", err)
		os.Exit(1)
	}

	conf := config.New()
	client, err := databases.NewClient(conf)
	if err != nil {
		fmt.Printf("Error creating database client: %v\n", err)
		os.Exit(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		fmt.Printf("Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer client.Disconnect(ctx)

	users := databases.NewUserDatabase(databases.NewDatabase(conf, client))
	now := time.Now().UTC()

	existing, err := users.FindOne(ctx, bson.M{"email": email})
	switch {
	case err == nil:
		err = users.UpdateOne(ctx, bson.M{"_id": existing.ID}, bson.M{"$set": bson.M{
			"name":      name,
			"password":  string(hashedPassword),
			"role":      policy.RoleSuperAdmin,
			"status":    models.UserActive,
			"updatedAt": now,
		}})
		if err == nil {
			fmt.Printf("Promoted %s (%s) to %s\n", email, existing.ID.Hex(), policy.RoleSuperAdmin)
		}
	case errors.Is(err, mongo.ErrNoDocuments):
		var created *models.User
		created, err = users.InsertOne(ctx, models.User{
			Name:      name,
			Email:     email,
			Password:  string(hashedPassword),
			Role:      policy.RoleSuperAdmin,
			Status:    models.UserActive,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err == nil {
			fmt.Printf("Created %s (%s) as %s\n", email, created.ID.Hex(), policy.RoleSuperAdmin)
		}
	}
	if err != nil {
		fmt.Printf("Error saving user: %v\n", err)
		os.Exit(1)
	}
}
