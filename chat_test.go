package main

import (
	"fmt"
	"testing"
)

func TestChatLogKeepsNewest(t *testing.T) {
	log := NewChatLog(MaxChatMessages)
	for i := 0; i < MaxChatMessages+1; i++ {
		log.Append(ChatEntry{Nick: "n", Text: fmt.Sprintf("msg %d", i)})
	}

	entries := log.Entries()
	if len(entries) != MaxChatMessages {
		t.Fatalf("expected %d entries, got %d", MaxChatMessages, len(entries))
	}
	if entries[0].Text != "msg 1" {
		t.Errorf("expected the oldest entry evicted, first is %q", entries[0].Text)
	}
	if last := entries[len(entries)-1].Text; last != fmt.Sprintf("msg %d", MaxChatMessages) {
		t.Errorf("expected newest last, got %q", last)
	}
}

func TestChatLogNeverExceedsCapacity(t *testing.T) {
	log := NewChatLog(3)
	for i := 0; i < 50; i++ {
		log.Append(ChatEntry{Text: fmt.Sprint(i)})
		if log.Len() > 3 {
			t.Fatalf("after %d appends Len()=%d", i+1, log.Len())
		}
	}
	got := log.Entries()
	want := []string{"47", "48", "49"}
	for i := range want {
		if got[i].Text != want[i] {
			t.Errorf("entry %d = %q, want %q", i, got[i].Text, want[i])
		}
	}
}

func TestChatLogEntriesIsACopy(t *testing.T) {
	log := NewChatLog(2)
	log.Append(ChatEntry{Text: "a"})
	entries := log.Entries()
	entries[0].Text = "changed"

	if log.Entries()[0].Text != "a" {
		t.Error("mutating Entries() result must not change the log")
	}
}

func TestChatLogZeroCapacity(t *testing.T) {
	log := NewChatLog(0)
	log.Append(ChatEntry{Text: "dropped"})
	if log.Len() != 0 || len(log.Entries()) != 0 {
		t.Error("zero-capacity log must stay empty")
	}
}
