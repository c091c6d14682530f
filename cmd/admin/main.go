package main

import (
	"context"
	"crypton/backend/internal/config"
	"crypton/backend/internal/identity"
	"crypton/backend/internal/retention"
	"crypton/backend/internal/storage"
	"fmt"
	"log"
	"os"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const usage = `Usage: admin <command> [args]

Commands:
  rooms                         list rooms with member and message counts
  trim <room_id> [limit]        evict the oldest messages beyond limit (default 100)
  delete-room <room_id>         remove a room with its messages and members
  rename <user_id> <username>   change a user's display name`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	storageSvc := storage.NewStorageService(db, nil) // No redis needed for admin CLI
	ctx := context.Background()

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "rooms":
		if err := listRooms(ctx, storageSvc); err != nil {
			log.Fatalf("Error listing rooms: %v", err)
		}
	case "trim":
		if len(os.Args) < 3 {
			fmt.Println("Usage: admin trim <room_id> [limit]")
			os.Exit(1)
		}
		limit := config.MaxRoomMessages
		if len(os.Args) > 3 {
			limit, err = strconv.Atoi(os.Args[3])
			if err != nil || limit < 0 {
				fmt.Println("Invalid limit. Please provide a non-negative integer.")
				os.Exit(1)
			}
		}
		evicted, err := storageSvc.TrimRoom(ctx, os.Args[2], retention.Policy{Limit: limit})
		if err != nil {
			log.Fatalf("Error trimming room: %v", err)
		}
		fmt.Printf("Evicted %d messages from room %s.\n", evicted, os.Args[2])
	case "delete-room":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin delete-room <room_id>")
			os.Exit(1)
		}
		if err := storageSvc.DeleteRoom(ctx, os.Args[2]); err != nil {
			log.Fatalf("Error deleting room: %v", err)
		}
		fmt.Printf("Room %s has been deleted.\n", os.Args[2])
	case "rename":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin rename <user_id> <username>")
			os.Exit(1)
		}
		ids := identity.NewService(storageSvc, cfg.JWTSecret)
		user, err := ids.Rename(ctx, identity.Caller{UserID: os.Args[2]}, os.Args[3])
		if err != nil {
			log.Fatalf("Error renaming user: %v", err)
		}
		fmt.Printf("User %s is now %q.\n", user.ID, user.Username)
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
}

func listRooms(ctx context.Context, s storage.Storage) error {
	rooms, err := s.ListRooms(ctx)
	if err != nil {
		return err
	}
	for _, r := range rooms {
		members, err := s.CountMembers(ctx, r.ID)
		if err != nil {
			return err
		}
		msgs, err := s.CountMessages(ctx, r.ID)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%-12s\t%3d members\t%3d messages\t%s\n", r.ID, r.Kind, members, msgs, r.Name)
	}
	return nil
}
