package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/ocr-service/internal/ocr"
	"github.com/joseph-ayodele/ocr-service/internal/server"
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:8000", "OCR service base URL")
		file     = flag.String("file", "", "PDF or image to upload (required)")
		language = flag.String("language", ocr.DefaultSelector, "language selector: kh, en or both")
		timeout  = flag.Duration("timeout", 3*time.Minute, "request timeout")
	)
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: ocrctl -file <path> [-url http://host:8000] [-language both]")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	status, body, err := upload(ctx, *baseURL+"/extract", *file, *language)
	if err != nil {
		fmt.Fprintf(os.Stderr, "upload failed: %v\n", err)
		os.Exit(1)
	}

	if err := server.ValidateExtractResponse(body); err != nil {
		fmt.Fprintf(os.Stderr, "unexpected response (HTTP %d): %v\n%s\n", status, err, body)
		os.Exit(1)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		pretty.Write(body)
	}
	fmt.Println(pretty.String())
	if status != http.StatusOK {
		os.Exit(1)
	}
}

func upload(ctx context.Context, url, path, language string) (int, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("language", language); err != nil {
		return 0, nil, err
	}
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return 0, nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return 0, nil, err
	}
	if err := mw.Close(); err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}
