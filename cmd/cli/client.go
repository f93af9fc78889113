// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

func apiBaseURL() string {
	if u := os.Getenv("COURSERAG_API_URL"); u != "" {
		return u
	}
	return "http://localhost:8080"
}

// newClient 超时放宽到两轮模型调用的耗时
func newClient() *resty.Client {
	return resty.New().
		SetBaseURL(apiBaseURL()).
		SetTimeout(120 * time.Second).
		SetHeader("Content-Type", "application/json")
}

type source struct {
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

type queryResponse struct {
	Answer    string   `json:"answer"`
	Sources   []source `json:"sources"`
	SessionID string   `json:"session_id"`
}

func postQuery(sessionID, query string) (*queryResponse, error) {
	body := map[string]string{"query": query}
	if sessionID != "" {
		body["session_id"] = sessionID
	}
	var out queryResponse
	resp, err := newClient().R().
		SetBody(body).
		SetResult(&out).
		Post("/api/query")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("POST /api/query: %s", resp.String())
	}
	return &out, nil
}

type coursesResponse struct {
	TotalCourses int64    `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

func getCourses() (*coursesResponse, error) {
	var out coursesResponse
	resp, err := newClient().R().
		SetResult(&out).
		Get("/api/courses")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("GET /api/courses: %s", resp.String())
	}
	return &out, nil
}

func getHealth() error {
	resp, err := newClient().R().Get("/api/health")
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("GET /api/health: %s", resp.String())
	}
	return nil
}

type uploadResponse struct {
	File   string `json:"file"`
	Added  bool   `json:"added"`
	Chunks int    `json:"chunks"`
}

func uploadDocument(path string) (*uploadResponse, error) {
	var out uploadResponse
	req := newClient().R().
		SetFile("file", path).
		SetResult(&out)
	if token := os.Getenv("COURSERAG_TOKEN"); token != "" {
		req.SetAuthToken(token)
	}
	resp, err := req.Post("/api/documents/upload")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("POST /api/documents/upload: %s", resp.String())
	}
	return &out, nil
}

// login 调用 /api/auth/login，返回 JWT（服务未启用认证时该路由不存在）
func login(username, password string) (string, error) {
	body := map[string]string{"username": username, "password": password}
	var out struct {
		Code   int    `json:"code"`
		Token  string `json:"token"`
		Expire string `json:"expire"`
	}
	resp, err := newClient().R().
		SetBody(body).
		SetResult(&out).
		Post("/api/auth/login")
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("POST /api/auth/login: %s", resp.String())
	}
	return out.Token, nil
}
