package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/FrancoisMichell/seirin-sub000/internal/config"
	"github.com/FrancoisMichell/seirin-sub000/internal/database"
	"github.com/FrancoisMichell/seirin-sub000/internal/logger"
	"github.com/FrancoisMichell/seirin-sub000/internal/model"
	"github.com/FrancoisMichell/seirin-sub000/internal/repository"
	"github.com/FrancoisMichell/seirin-sub000/internal/service"
	"github.com/FrancoisMichell/seirin-sub000/internal/validator"
	"github.com/gin-gonic/gin/binding"
)

// Reads a CSV with the header name,registry,belt,birthday,trainingSince and
// registers every row as a student. Rows with a taken registry are skipped.
func main() {
	file := flag.String("file", "students.csv", "CSV file to import")
	classID := flag.Int("class", 0, "enroll the imported students in this class")
	instructorID := flag.Int("instructor", 0, "instructor (teacher) id for every student")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	validator.Setup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	reqs, err := readStudents(*file, *instructorID)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("Failed to read students")
	}

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	userService := service.NewUserService(
		repository.NewUserRepository(pool),
		database.NewTxManager(pool),
		service.PasswordHasher{Cost: cfg.BcryptCost},
		logger.Component(log, "seed_students"),
	)

	fmt.Printf("=== Seeding %d Students ===\n", len(reqs))

	created, skipped, err := userService.BulkCreateStudents(ctx, reqs)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed students")
	}
	for _, i := range skipped {
		fmt.Printf("Skipped row %d (%s): registry already in use\n", i+2, reqs[i].Name)
	}

	if *classID > 0 {
		classService := service.NewClassService(
			repository.NewClassRepository(pool),
			repository.NewClassSessionRepository(pool),
			userService,
			logger.Component(log, "seed_students"),
		)
		for _, s := range created {
			if _, err := classService.EnrollStudent(ctx, *classID, s.ID); err != nil {
				log.Fatal().Err(err).Int("class_id", *classID).Int("student_id", s.ID).Msg("Failed to enroll student")
			}
		}
		fmt.Printf("Enrolled %d students in class %d\n", len(created), *classID)
	}

	fmt.Printf("\nSeed completed! Added %d/%d students.\n", len(created), len(reqs))
}

func readStudents(path string, instructorID int) ([]model.CreateUserRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	if _, ok := col["name"]; !ok {
		return nil, errors.New(`missing "name" column`)
	}

	field := func(rec []string, name string) *string {
		i, ok := col[name]
		if !ok || i >= len(rec) || strings.TrimSpace(rec[i]) == "" {
			return nil
		}
		v := strings.TrimSpace(rec[i])
		return &v
	}

	var reqs []model.CreateUserRequest
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		name := field(rec, "name")
		if name == nil {
			return nil, fmt.Errorf("line %d: name is required", line)
		}
		req := model.CreateUserRequest{
			Name:          *name,
			Registry:      field(rec, "registry"),
			Birthday:      field(rec, "birthday"),
			TrainingSince: field(rec, "trainingSince"),
		}
		if belt := field(rec, "belt"); belt != nil {
			req.Belt = model.Belt(*belt)
		}
		if instructorID > 0 {
			req.InstructorID = &instructorID
		}
		if err := binding.Validator.ValidateStruct(&req); err != nil {
			return nil, fmt.Errorf("line %d: %v", line, validator.TranslateErrors(err))
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}
