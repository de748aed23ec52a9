// Command explain runs one sample text through the explanation service.
package main

import (
	"context"
	"fmt"
	"log"

	"fakenews/internal/config"
	"fakenews/internal/credential"
	"fakenews/internal/explain"
	"fakenews/internal/llm"
	"fakenews/internal/secrets"
)

const sampleText = "AI is taking over the world next year."

func main() {
	if err := config.LoadEnvFile(config.DefaultEnvFile); err != nil {
		log.Printf("[Explain] WARNING: %v", err)
	}
	resolver := credential.NewResolver(explain.CredentialKey, secrets.NewFileStore(config.DefaultSecretsPath))
	svc := explain.NewGroqService(resolver, explain.DefaultModel, llm.DefaultOptions())

	fmt.Println("Sample explanation:")
	fmt.Println(svc.Explain(context.Background(), sampleText))
}
