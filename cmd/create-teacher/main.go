package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/FrancoisMichell/seirin-sub000/internal/config"
	"github.com/FrancoisMichell/seirin-sub000/internal/database"
	"github.com/FrancoisMichell/seirin-sub000/internal/logger"
	"github.com/FrancoisMichell/seirin-sub000/internal/model"
	"github.com/FrancoisMichell/seirin-sub000/internal/repository"
	"github.com/FrancoisMichell/seirin-sub000/internal/service"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Initialize Service ────────────────────────────────────────────
	userService := service.NewUserService(
		repository.NewUserRepository(pool),
		database.NewTxManager(pool),
		service.PasswordHasher{Cost: cfg.BcryptCost},
		logger.Component(log, "create_teacher"),
	)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Teacher ===")

	fmt.Print("Enter Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		fmt.Println("Error: Name must be at least 2 characters")
		return
	}

	fmt.Print("Enter Registry: ")
	registry, _ := reader.ReadString('\n')
	registry = strings.TrimSpace(registry)
	if len(registry) < 3 {
		fmt.Println("Error: Registry must be at least 3 characters")
		return
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		return
	}
	password := string(bytePassword)
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	fmt.Print("Enter Belt (default Black): ")
	beltStr, _ := reader.ReadString('\n')
	belt := model.BeltBlack
	if beltStr = strings.TrimSpace(beltStr); beltStr != "" {
		belt = model.Belt(strings.ToUpper(beltStr[:1]) + strings.ToLower(beltStr[1:]))
		if !belt.Valid() {
			fmt.Printf("Error: Belt must be one of %v\n", model.AllBelts)
			return
		}
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	teacher, err := userService.Create(ctx, model.CreateUserRequest{
		Name:     name,
		Registry: &registry,
		Password: &password,
		Belt:     belt,
	}, []model.Role{model.RoleTeacher})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create teacher")
	}

	fmt.Printf("\nSuccess! Teacher '%s' (%s) created with ID: %d\n", teacher.Name, registry, teacher.ID)
}
