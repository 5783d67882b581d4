// Command service_token prints a new x-api-key for donation intake and the spending workflow,
// together with the hash to set as SERVICE_TOKEN_HASH.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/SscSPs/fund_ledger/internal/utils"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	token, hash, err := utils.GenerateServiceToken()
	if err != nil {
		logger.Error("Failed to generate service token", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Printf("x-api-key:          %s\n", token)
	fmt.Printf("SERVICE_TOKEN_HASH: %s\n", hash)
}
