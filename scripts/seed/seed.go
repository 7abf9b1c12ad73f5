// Seeder: drives the batch upload API end to end with generated photos.
// Collisions are auto-resolved as overwrite so repeated runs exercise the
// update path as well as inserts.
//
// Usage: go run ./scripts/seed
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"sync"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
)

const (
	ServerURL   = "http://localhost:9480"
	SeedUser    = "seed-user"
	TotalFiles  = 60
	BatchSize   = 6
	WorkerCount = 4
)

var names = []string{"mountain", "river", "nebula", "beach", "skyline", "portrait", "sunset", "forest", "harbor", "market"}

type Result struct {
	Batch   int
	Success bool
	Err     error
}

func main() {
	pterm.DefaultHeader.WithFullWidth().
		WithBackgroundStyle(pterm.NewStyle(pterm.BgLightMagenta)).
		WithTextStyle(pterm.NewStyle(pterm.FgBlack)).
		Println("PHOTOVAULT BATCH SEEDER")
	pterm.Println()

	totalBatches := TotalFiles / BatchSize

	data := pterm.TableData{
		{"Target Server", color.New(color.FgCyan).Sprint(ServerURL)},
		{"Total Files", color.New(color.FgYellow).Sprintf("%d files", TotalFiles)},
		{"Batches", color.New(color.FgYellow).Sprintf("%d x %d files", totalBatches, BatchSize)},
		{"Concurrency", color.New(color.FgYellow).Sprintf("%d workers", WorkerCount)},
	}
	_ = pterm.DefaultTable.WithBoxed().WithData(data).Render()
	pterm.Println()

	bar, _ := pterm.DefaultProgressbar.
		WithTotal(totalBatches).
		WithTitle("Seeding Batches...").
		WithShowCount(true).
		WithShowElapsedTime(true).
		Start()

	var wg sync.WaitGroup
	jobs := make(chan int, totalBatches)
	results := make(chan Result, totalBatches)

	for w := 0; w < WorkerCount; w++ {
		wg.Add(1)
		go worker(jobs, results, &wg, bar)
	}

	for b := 0; b < totalBatches; b++ {
		jobs <- b
	}
	close(jobs)

	wg.Wait()
	close(results)

	successCount, failCount := 0, 0
	var failures []Result
	for res := range results {
		if res.Success {
			successCount++
		} else {
			failCount++
			failures = append(failures, res)
		}
	}

	pterm.Println()
	if failCount == 0 {
		pterm.DefaultSection.WithStyle(pterm.NewStyle(pterm.FgGreen)).Println("SEEDING COMPLETED SUCCESSFULLY")
		pterm.Info.Printf("Committed %d batches (%d files).\n", successCount, successCount*BatchSize)
	} else {
		pterm.DefaultSection.WithStyle(pterm.NewStyle(pterm.FgYellow)).Println("COMPLETED WITH ERRORS")
		pterm.Info.Printf("Success: %d | Failed: %d\n", successCount, failCount)
		pterm.Println()
		pterm.Error.Println("Failure Report:")
		for _, f := range failures {
			pterm.Error.Printf("  batch %d: %v\n", f.Batch, f.Err)
		}
	}
	pterm.Println()
}

func worker(jobs <-chan int, results chan<- Result, wg *sync.WaitGroup, bar *pterm.ProgressbarPrinter) {
	defer wg.Done()

	for batchNum := range jobs {
		err := runBatch(batchNum)
		results <- Result{Batch: batchNum, Success: err == nil, Err: err}
		bar.Increment()
	}
}

func runBatch(batchNum int) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for i := 0; i < BatchSize; i++ {
		name := fmt.Sprintf("%s-%03d.jpg", names[rand.Intn(len(names))], batchNum*BatchSize+i)
		part, err := writer.CreateFormFile("photos", name)
		if err != nil {
			return err
		}
		payload := make([]byte, 2048+rand.Intn(4096))
		rand.Read(payload)
		part.Write(payload)
	}
	writer.Close()

	submit, err := apiRequest(http.MethodPost, "/api/batches", body, writer.FormDataContentType())
	if err != nil {
		return err
	}

	batchID, _ := submit["batch_id"].(string)
	if batchID == "" {
		return fmt.Errorf("no batch_id in submit response")
	}

	// Auto-overwrite every collision.
	if collisions, ok := submit["collisions"].(map[string]interface{}); ok && len(collisions) > 0 {
		decisions := make(map[string]string, len(collisions))
		for name := range collisions {
			decisions[name] = "overwrite"
		}
		payload, _ := json.Marshal(decisions)
		if _, err := apiRequest(http.MethodPost, "/api/batches/"+batchID+"/decisions", bytes.NewReader(payload), "application/json"); err != nil {
			return err
		}
	}

	result, err := apiRequest(http.MethodPost, "/api/batches/"+batchID+"/commit", nil, "")
	if err != nil {
		return err
	}
	if status, _ := result["status"].(string); status != "completed" {
		return fmt.Errorf("batch finished with status %q", status)
	}
	return nil
}

func apiRequest(method, path string, body io.Reader, contentType string) (map[string]interface{}, error) {
	req, err := http.NewRequest(method, ServerURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("X-Auth-User", SeedUser)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %v", resp.StatusCode, decoded["message"])
	}
	return decoded, nil
}
