// Command booth serves fake marketplace pages for local development.
//
// Every keyword yields totalItems listings split into pages of perPage.
// The keyword "ratelimit" answers 429 to exercise back-off handling.
package main

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	totalItems = 60
	perPage    = 24
)

var searchPage = template.Must(template.New("search").Parse(`<!DOCTYPE html>
<html lang="ko">
<head><meta charset="utf-8"><title>{{ .Keyword }} - BOOTH</title></head>
<body>
  <div class="l-search-header"><span class="search-result__count">{{ .Total }}件</span></div>
  <ul class="l-row-card-list">
  {{- range .Items }}
    <li class="item-card" data-product-id="{{ .ID }}">
      <div class="item-card__thumbnail">
        <a class="js-thumbnail-image" href="/ko/items/{{ .ID }}" data-original="https://booth.pximg.net/c/300x300/{{ .ID }}.jpg"></a>
      </div>
      <div class="item-card__title"><a class="item-card__title-anchor" href="/ko/items/{{ .ID }}">{{ .Title }}</a></div>
      <div class="item-card__shop-info">
        <a class="item-card__shop-name-anchor" href="https://shop{{ .Shop }}.booth.pm/"><div class="item-card__shop-name">Mock Shop {{ .Shop }}</div></a>
      </div>
      <div class="price">{{ .Price }}</div>
      <div class="item-card__wish-count" data-wish-count="{{ .Likes }}">{{ .Likes }}</div>
    </li>
  {{- end }}
  </ul>
</body>
</html>`))

var itemPage = template.Must(template.New("item").Parse(`<!DOCTYPE html>
<html lang="ko">
<head><meta charset="utf-8"><title>Item {{ .ID }} - BOOTH</title></head>
<body>
  <div class="js-market-item-detail-description description">
    <p>Mock listing {{ .ID }}.</p>
    <p>対応アバター: 桔梗, マヌカ, セレスティア</p>
  </div>
</body>
</html>`))

type listing struct {
	ID    int
	Title string
	Shop  int
	Price string
	Likes int
}

func main() {
	http.HandleFunc("/ko/search/", func(w http.ResponseWriter, r *http.Request) {
		keyword := strings.TrimPrefix(r.URL.Path, "/ko/search/")
		if strings.HasPrefix(keyword, "ratelimit") {
			w.Header().Set("Retry-After", "5")
			w.WriteHeader(http.StatusTooManyRequests)
			log.Printf("[Booth] %s %s - 429", r.Method, r.URL.Path)
			return
		}

		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 {
			page = 1
		}

		// Simulate network latency (50-200ms)
		time.Sleep(time.Duration(50+time.Now().UnixNano()%150) * time.Millisecond)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := searchPage.Execute(w, map[string]any{
			"Keyword": keyword,
			"Total":   totalItems,
			"Items":   listings(keyword, page),
		}); err != nil {
			log.Printf("[Booth] Write error: %v", err)
		}

		log.Printf("[Booth] %s %s page=%d - 200 OK", r.Method, r.URL.Path, page)
	})

	http.HandleFunc("/ko/items/", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/ko/items/"))
		if err != nil {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := itemPage.Execute(w, map[string]any{"ID": id}); err != nil {
			log.Printf("[Booth] Write error: %v", err)
		}
	})

	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"healthy"}`)); err != nil {
			log.Printf("[Booth] Health write error: %v", err)
		}
	})

	log.Println("Mock Booth running on :8081")
	server := &http.Server{
		Addr:         ":8081",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}

func listings(keyword string, page int) []listing {
	avatar := strings.TrimSpace(strings.TrimSuffix(keyword, "対応"))
	first := (page - 1) * perPage

	var out []listing
	for i := first; i < first+perPage && i < totalItems; i++ {
		price := fmt.Sprintf("¥ %d", 500+i*100)
		if i%7 == 0 {
			price = "無料"
		}
		out = append(out, listing{
			ID:    10000 + i,
			Title: fmt.Sprintf("【%s対応】 Mock Outfit %d", avatar, i+1),
			Shop:  i % 5,
			Price: price,
			Likes: (i * 37) % 500,
		})
	}
	return out
}
