// Kicks off a scrape cycle on a running server. Needs a valid login
// token in API_TOKEN.
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

func main() {
	token := strings.TrimSpace(os.Getenv("API_TOKEN"))
	if token == "" {
		fmt.Println("Missing API_TOKEN environment variable (login via /api/auth/login to get one)")
		os.Exit(1)
	}

	base := strings.TrimSpace(os.Getenv("API_BASE"))
	if base == "" {
		base = "http://localhost:3001"
	}

	req, err := http.NewRequest("POST", base+"/api/scrape-cycle", nil)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("Response Status: %s\n", resp.Status)
	fmt.Println(string(body))
	if resp.StatusCode != http.StatusAccepted {
		os.Exit(1)
	}
}
