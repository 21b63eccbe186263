// Package library caches downloaded songs in SQLite so a song found once
// opens without the network.
package library

import (
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type Library struct {
	db *sql.DB
}

type Entry struct {
	Sum     string
	URL     string
	Title   string
	Fetched time.Time
	Size    int
}

// Open opens or creates the library at file. ":memory:" works for tests.
func Open(file string) (*Library, error) {
	db, err := sql.Open("sqlite3", file)
	if nil != err {
		return nil, fmt.Errorf("unable to open library: %w", err)
	}
	// one connection keeps ":memory:" a single database
	db.SetMaxOpenConns(1)

	initStatement := `
	create table if not exists songs
	  (
		  id integer not null primary key,
		  sum text not null,
		  url text not null unique,
		  title text,
		  fetched integer,
		  data blob
	  );
	`
	if _, err := db.Exec(initStatement); nil != err {
		db.Close()
		return nil, fmt.Errorf("unable to create library: %w", err)
	}
	return &Library{db: db}, nil
}

func (l *Library) Close() error {
	return l.db.Close()
}

func hash(data []byte) string {
	sum := sha256.Sum256(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func (l *Library) Get(url string) ([]byte, bool, error) {
	var data []byte
	err := l.db.QueryRow("select data from songs where url = ?", url).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if nil != err {
		return nil, false, fmt.Errorf("unable to load song: %w", err)
	}
	return data, true, nil
}

// Put stores or replaces the song at url. An empty title keeps the old one.
func (l *Library) Put(url, title string, data []byte) error {
	_, err := l.db.Exec(`
	insert into songs(sum, url, title, fetched, data) values(?, ?, ?, ?, ?)
	on conflict(url) do update set
	  sum = excluded.sum,
	  title = coalesce(nullif(excluded.title, ''), songs.title),
	  fetched = excluded.fetched,
	  data = excluded.data
	`, hash(data), url, title, time.Now().Unix(), data)
	if nil != err {
		return fmt.Errorf("unable to save song: %w", err)
	}
	return nil
}

func (l *Library) Delete(url string) error {
	if _, err := l.db.Exec("delete from songs where url = ?", url); nil != err {
		return fmt.Errorf("unable to delete song: %w", err)
	}
	return nil
}

// Recent lists up to limit songs, newest first.
func (l *Library) Recent(limit int) ([]Entry, error) {
	entries := []Entry{}
	rows, err := l.db.Query("select sum, url, title, fetched, length(data) from songs order by fetched desc, id desc limit ?", limit)
	if nil != err {
		return entries, fmt.Errorf("unable to list songs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e Entry
		var title sql.NullString
		var fetched int64
		if err := rows.Scan(&e.Sum, &e.URL, &title, &fetched, &e.Size); nil != err {
			return entries, fmt.Errorf("unable to read song: %w", err)
		}
		e.Title = title.String
		e.Fetched = time.Unix(fetched, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
