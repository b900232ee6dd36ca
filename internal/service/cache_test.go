package service

import (
	"testing"
	"time"

	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/model"
)

// TestFileCache_GetSet проверяет базовые операции кэша записей.
func TestFileCache_GetSet(t *testing.T) {
	cache := NewFileCache(10, 5*time.Minute)

	if _, ok := cache.Get("F0001"); ok {
		t.Error("ожидался miss для пустого кэша")
	}

	cache.Set(&model.FileRecord{CatalogID: "F0001", DisplayName: "a.mkv"})

	got, ok := cache.Get("F0001")
	if !ok {
		t.Fatal("ожидался hit после Set")
	}
	if got.DisplayName != "a.mkv" {
		t.Errorf("DisplayName = %q, ожидался a.mkv", got.DisplayName)
	}

	cache.Delete("F0001")
	if _, ok := cache.Get("F0001"); ok {
		t.Error("ожидался miss после Delete")
	}
}

// TestFileCache_Eviction проверяет вытеснение при переполнении.
func TestFileCache_Eviction(t *testing.T) {
	cache := NewFileCache(2, 5*time.Minute)

	cache.Set(&model.FileRecord{CatalogID: "F0001"})
	cache.Set(&model.FileRecord{CatalogID: "F0002"})
	cache.Set(&model.FileRecord{CatalogID: "F0003"})

	if _, ok := cache.Get("F0001"); ok {
		t.Error("F0001 должен быть вытеснен")
	}
	if _, ok := cache.Get("F0003"); !ok {
		t.Error("F0003 должен быть в кэше")
	}
}

// TestSessionCache_TTL проверяет истечение сессии без продления при чтении.
func TestSessionCache_TTL(t *testing.T) {
	cache := NewSessionCache(10, 100*time.Millisecond)

	cache.Set(1, []string{"iron", "man"})

	time.Sleep(60 * time.Millisecond)
	if _, ok := cache.Get(1); !ok {
		t.Fatal("сессия должна быть жива до истечения TTL")
	}

	// Чтение выше не продлевает TTL
	time.Sleep(80 * time.Millisecond)
	if _, ok := cache.Get(1); ok {
		t.Error("сессия должна истечь через TTL от Set")
	}
}

// TestSessionCache_CopiesTokens проверяет, что кэш не разделяет срез с вызывающим.
func TestSessionCache_CopiesTokens(t *testing.T) {
	cache := NewSessionCache(10, time.Minute)

	tokens := []string{"iron", "man"}
	cache.Set(1, tokens)
	tokens[0] = "mutated"

	got, _ := cache.Get(1)
	if got[0] != "iron" {
		t.Errorf("tokens[0] = %q, ожидался iron", got[0])
	}
}

// TestMembershipCache_AsymmetricTTL проверяет разные TTL для участников и не-участников.
func TestMembershipCache_AsymmetricTTL(t *testing.T) {
	cache := NewMembershipCache(10, time.Minute, 50*time.Millisecond)

	cache.Set(1, true)
	cache.Set(2, false)

	if member, ok := cache.Get(1); !ok || !member {
		t.Errorf("Get(1) = %v, %v; ожидался member", member, ok)
	}
	if member, ok := cache.Get(2); !ok || member {
		t.Errorf("Get(2) = %v, %v; ожидался non-member", member, ok)
	}

	time.Sleep(80 * time.Millisecond)

	if _, ok := cache.Get(2); ok {
		t.Error("вердикт не-участника должен истечь")
	}
	if member, ok := cache.Get(1); !ok || !member {
		t.Error("вердикт участника должен сохраниться")
	}
}

// TestMembershipCache_SetSwitchesVerdict проверяет замену вердикта.
func TestMembershipCache_SetSwitchesVerdict(t *testing.T) {
	cache := NewMembershipCache(10, time.Minute, time.Minute)

	cache.Set(1, false)
	cache.Set(1, true)
	if member, ok := cache.Get(1); !ok || !member {
		t.Errorf("Get(1) = %v, %v; ожидался member", member, ok)
	}

	cache.Delete(1)
	if _, ok := cache.Get(1); ok {
		t.Error("ожидался miss после Delete")
	}
}
