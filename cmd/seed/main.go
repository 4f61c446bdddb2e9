package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/2beens/gymcoach/internal/auth"
	"github.com/2beens/gymcoach/internal/config"
	"github.com/2beens/gymcoach/internal/db"
	"github.com/2beens/gymcoach/internal/logging"
	"github.com/2beens/gymcoach/internal/personalmax"
	"github.com/2beens/gymcoach/internal/routines"
	"github.com/2beens/gymcoach/internal/workout"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// seed logs a dev user in and stores a sample routine, printing the token and routine id.
func main() {
	env := flag.String("env", "development", "environment [dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	userID := flag.String("user", "", "user id to log in, random if empty")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}
	if cfg.IsProduction() {
		log.Fatalln("refusing to seed production")
	}

	logging.Setup(logging.LoggerSetupParams{
		LogToStdout: true,
		LogLevel:    cfg.LogLevel,
		Environment: cfg.Environment,
	})

	if *userID == "" {
		*userID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: os.Getenv("GYMCOACH_REDIS_PASS"),
	})
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warnf("close redis client: %s", err)
		}
	}()

	token, err := auth.NewAuthService(auth.DefaultTTL, rdb).Login(ctx, *userID, time.Now())
	if err != nil {
		log.Fatalf("login user [%s]: %s", *userID, err)
	}

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:     cfg.PostgresHost,
		DBPort:     cfg.PostgresPort,
		DBName:     cfg.PostgresDBName,
		DBPassword: os.Getenv("GYMCOACH_POSTGRES_PASS"),
	})
	if err != nil {
		log.Fatalf("new db pool: %s", err)
	}
	defer dbPool.Close()

	routine, err := routines.NewRepo(dbPool).AddRoutine(ctx, *userID, sampleRoutine())
	if err != nil {
		log.Fatalf("add routine: %s", err)
	}

	if _, err := personalmax.NewRepo(dbPool).Upsert(ctx, workout.PersonalMax{
		UserID:     *userID,
		ExerciseID: "back-squat",
		MaxWeight:  140,
	}); err != nil {
		log.Fatalf("add personal max: %s", err)
	}

	fmt.Printf("user:    %s\ntoken:   %s\nroutine: %s\n", *userID, token, routine.ID)
}

func sampleRoutine() routines.NewRoutine {
	f := func(v float64) *float64 { return &v }
	i := func(v int) *int { return &v }

	return routines.NewRoutine{
		Name: "Upper / Lower",
		Days: []workout.RoutineDay{
			{
				Number: 1,
				Name:   "Lower",
				Exercises: []workout.RoutineExercise{
					{
						ExerciseID: "back-squat",
						Name:       "Back Squat",
						Sets: []workout.PlannedSet{
							{Reps: 5, LoadPercentage: f(70), RestSeconds: i(120)},
							{Reps: 5, LoadPercentage: f(75), RestSeconds: i(150)},
							{Reps: 5, LoadPercentage: f(80), RestSeconds: i(180), RIR: f(1)},
						},
					},
					{
						ExerciseID: "rdl",
						Name:       "Romanian Deadlift",
						Sets: []workout.PlannedSet{
							{Reps: 8, Weight: f(80), RestSeconds: i(90)},
							{Reps: 8, Weight: f(80), RestSeconds: i(90)},
						},
					},
				},
			},
			{
				Number: 2,
				Name:   "Upper",
				Exercises: []workout.RoutineExercise{
					{
						ExerciseID: "bench-press",
						Name:       "Bench Press",
						Sets: []workout.PlannedSet{
							{Reps: 6, Weight: f(70)},
							{Reps: 6, Weight: f(70)},
							{Reps: 6, Weight: f(70)},
						},
					},
					{
						ExerciseID: "pull-up",
						Name:       "Pull Up",
						Sets: []workout.PlannedSet{
							{Reps: 8, RestSeconds: i(60)},
							{Reps: 8, RestSeconds: i(60)},
						},
					},
				},
			},
		},
	}
}
