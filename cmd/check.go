package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"EchoFM/config"
	"EchoFM/db"
	"EchoFM/storage"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe backing services",
	Long:  `Check connectivity to MySQL, Redis and MinIO using the current configuration.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		fmt.Printf("MySQL %s:%s/%s ... ", cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err := db.ConnectDB(cfg); err != nil {
			log.Fatalf("FAILED: %v", err)
		}
		db.DB.Close()
		fmt.Println("ok")

		fmt.Printf("Redis %s:%s ... ", cfg.RedisHost, cfg.RedisPort)
		if err := db.ConnectRedis(cfg); err != nil {
			fmt.Printf("unavailable: %v\n", err)
		} else {
			if err := db.TestRedis(); err != nil {
				fmt.Printf("read-write check failed: %v\n", err)
			} else {
				fmt.Println("ok")
			}
			db.CloseRedis()
		}

		fmt.Printf("MinIO %s bucket %s ... ", cfg.MinioEndpoint, cfg.MinioBucket)
		if err := storage.InitMinio(cfg); err != nil {
			fmt.Printf("unavailable: %v\n", err)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := storage.GetMinioClient().BucketExists(ctx, cfg.MinioBucket); err != nil {
				fmt.Printf("bucket check failed: %v\n", err)
			} else {
				fmt.Println("ok")
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
