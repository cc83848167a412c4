package store

import (
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aubus-project/aubus/internal/database"
	"github.com/aubus-project/aubus/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db)
}

func createTestUser(t *testing.T, s *Store, username string, isDriver bool) *models.User {
	t.Helper()
	u := &models.User{
		Name:     username,
		Email:    username + "@example.com",
		Username: username,
		Password: "secret123",
		IsDriver: isDriver,
		Area:     "Hamra",
	}
	if err := s.CreateUser(u, nil); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func TestCreateUserRejectsDuplicateUsername(t *testing.T) {
	s := newTestStore(t)
	createTestUser(t, s, "maya", false)

	dup := &models.User{Name: "Other", Email: "o@example.com", Username: "maya", Password: "x"}
	if err := s.CreateUser(dup, nil); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("err = %v, want ErrUsernameTaken", err)
	}
}

func TestAuthenticate(t *testing.T) {
	s := newTestStore(t)
	createTestUser(t, s, "maya", false)

	u, err := s.Authenticate("maya", "secret123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if u.Username != "maya" {
		t.Errorf("username = %q", u.Username)
	}

	if _, err := s.Authenticate("maya", "wrong"); !errors.Is(err, ErrNotFound) {
		t.Errorf("wrong password err = %v, want ErrNotFound", err)
	}
	if _, err := s.Authenticate("ghost", "secret123"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user err = %v, want ErrNotFound", err)
	}
}

func TestCreateUserWithInitialSchedule(t *testing.T) {
	s := newTestStore(t)
	u := &models.User{
		Name: "Driver", Email: "d@example.com", Username: "driver1",
		Password: "x", IsDriver: true, Area: "Hamra",
	}
	schedule := InitialSchedule{
		"Monday": {"to AUB": "08:00", "from AUB": "17:00"},
		"Friday": {"to AUB": "09:00"},
	}
	if err := s.CreateUser(u, schedule); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	entries, err := s.ListSchedule(u.ID)
	if err != nil {
		t.Fatalf("ListSchedule: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("got %d schedule entries, want 3", len(entries))
	}
	for _, e := range entries {
		if e.Area != "Hamra" {
			t.Errorf("entry area = %q, want the registration area", e.Area)
		}
	}
}

func TestDeleteScheduleEntryOwnership(t *testing.T) {
	s := newTestStore(t)
	owner := createTestUser(t, s, "owner", true)
	other := createTestUser(t, s, "other", true)

	entry := &models.ScheduleEntry{UserID: owner.ID, Day: "Monday", Time: "08:00", Direction: "to AUB", Area: "Hamra"}
	if err := s.AddSchedule(entry); err != nil {
		t.Fatalf("AddSchedule: %v", err)
	}

	if err := s.DeleteScheduleEntry(entry.ID, other.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign delete err = %v, want ErrNotFound", err)
	}
	if err := s.DeleteScheduleEntry(entry.ID, owner.ID); err != nil {
		t.Errorf("owner delete: %v", err)
	}
}

func TestUserRidesExcludesAbandonedPending(t *testing.T) {
	s := newTestStore(t)
	passenger := createTestUser(t, s, "pia", false)
	driver := createTestUser(t, s, "dina", true)

	// PENDING with a live offer: listed.
	withOffer := &models.Ride{
		PassengerID: passenger.ID, Direction: "to AUB", Day: "Monday", Time: "08:00",
		Area: "Hamra", Status: models.RideStatusPending, RequestedAt: time.Now().UTC(),
	}
	if err := s.CreateRideWithOffers(withOffer, []uint{driver.ID}); err != nil {
		t.Fatalf("CreateRideWithOffers: %v", err)
	}

	// PENDING, no driver, no offers: malformed leftover, hidden.
	abandoned := &models.Ride{
		PassengerID: passenger.ID, Direction: "to AUB", Day: "Tuesday", Time: "08:00",
		Area: "Hamra", Status: models.RideStatusPending, RequestedAt: time.Now().UTC(),
	}
	if err := s.CreateRideWithOffers(abandoned, nil); err != nil {
		t.Fatalf("CreateRideWithOffers: %v", err)
	}

	rides, err := s.UserRides(passenger.ID)
	if err != nil {
		t.Fatalf("UserRides: %v", err)
	}
	if len(rides) != 1 {
		t.Fatalf("got %d rides, want only the one with a live offer", len(rides))
	}
	if rides[0].RideID != withOffer.ID {
		t.Errorf("listed ride %d, want %d", rides[0].RideID, withOffer.ID)
	}
	if rides[0].Role != models.RolePassenger {
		t.Errorf("role = %q, want passenger", rides[0].Role)
	}
}

func TestUserRidesRatingAndEditWindow(t *testing.T) {
	s := newTestStore(t)
	passenger := createTestUser(t, s, "pia", false)
	driver := createTestUser(t, s, "dina", true)

	completed := time.Now().UTC().Add(-2 * time.Hour)
	ride := &models.Ride{
		PassengerID: passenger.ID, DriverID: &driver.ID,
		Direction: "to AUB", Day: "Monday", Time: "08:00", Area: "Hamra",
		Status: models.RideStatusCompleted, RequestedAt: completed.Add(-time.Hour),
		CompletedAt: &completed,
	}
	if err := s.db.Create(ride).Error; err != nil {
		t.Fatalf("create ride: %v", err)
	}
	if err := s.UpsertRating(&models.Rating{
		RatedUserID: driver.ID, RaterUserID: passenger.ID, RideID: ride.ID,
		Rating: 4, Role: models.RoleDriver,
	}); err != nil {
		t.Fatalf("UpsertRating: %v", err)
	}

	rides, err := s.UserRides(passenger.ID)
	if err != nil {
		t.Fatalf("UserRides: %v", err)
	}
	if len(rides) != 1 {
		t.Fatalf("got %d rides", len(rides))
	}
	if rides[0].Rating == nil || *rides[0].Rating != 4 {
		t.Errorf("own rating = %v, want 4", rides[0].Rating)
	}
	if !rides[0].CanEditRating {
		t.Error("rating should be editable 2h after completion")
	}
	if rides[0].PartnerName != driver.Name {
		t.Errorf("partner = %q, want %q", rides[0].PartnerName, driver.Name)
	}

	// Push completion outside the window; the flag flips.
	old := time.Now().UTC().Add(-37 * time.Hour)
	if err := s.db.Model(ride).Update("completed_at", old).Error; err != nil {
		t.Fatalf("age ride: %v", err)
	}
	rides, err = s.UserRides(passenger.ID)
	if err != nil {
		t.Fatalf("UserRides: %v", err)
	}
	if rides[0].CanEditRating {
		t.Error("rating window still open 37h after completion")
	}
}

func TestUpsertRatingReplacesExisting(t *testing.T) {
	s := newTestStore(t)
	passenger := createTestUser(t, s, "pia", false)
	driver := createTestUser(t, s, "dina", true)

	first := &models.Rating{RatedUserID: driver.ID, RaterUserID: passenger.ID, RideID: 7, Rating: 2, Role: models.RoleDriver}
	if err := s.UpsertRating(first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second := &models.Rating{RatedUserID: driver.ID, RaterUserID: passenger.ID, RideID: 7, Rating: 5, Role: models.RoleDriver}
	if err := s.UpsertRating(second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	var count int64
	s.db.Model(&models.Rating{}).Where("ride_id = ? AND rater_user_id = ?", 7, passenger.ID).Count(&count)
	if count != 1 {
		t.Errorf("rating rows = %d, want 1", count)
	}
	avg, err := s.AverageRating(driver.ID, models.RoleDriver)
	if err != nil {
		t.Fatalf("AverageRating: %v", err)
	}
	if avg != 5 {
		t.Errorf("average = %v, want 5 after replacement", avg)
	}
}

func TestContactsDerivation(t *testing.T) {
	s := newTestStore(t)
	me := createTestUser(t, s, "me", false)
	ridePartner := createTestUser(t, s, "ridepartner", true)
	chatPartner := createTestUser(t, s, "chatpartner", false)
	stranger := createTestUser(t, s, "stranger", true)

	// Shared ride with a resolved driver.
	ride := &models.Ride{
		PassengerID: me.ID, DriverID: &ridePartner.ID,
		Direction: "to AUB", Day: "Monday", Time: "08:00", Area: "Hamra",
		Status: models.RideStatusAccepted, RequestedAt: time.Now().UTC(),
	}
	if err := s.db.Create(ride).Error; err != nil {
		t.Fatalf("create ride: %v", err)
	}

	// Pending ride with nobody committed: no contact from this.
	pending := &models.Ride{
		PassengerID: me.ID, Direction: "to AUB", Day: "Tuesday", Time: "08:00",
		Area: "Hamra", Status: models.RideStatusPending, RequestedAt: time.Now().UTC(),
	}
	if err := s.CreateRideWithOffers(pending, []uint{stranger.ID}); err != nil {
		t.Fatalf("create pending ride: %v", err)
	}

	// An inbound message also creates a contact.
	if err := s.SaveMessage(&models.Message{SenderID: chatPartner.ID, ReceiverID: me.ID, Body: "hi"}); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}

	contacts, err := s.Contacts(me.ID)
	if err != nil {
		t.Fatalf("Contacts: %v", err)
	}
	got := map[string]bool{}
	for _, c := range contacts {
		got[c.Username] = true
	}
	if !got["ridepartner"] || !got["chatpartner"] {
		t.Errorf("contacts = %v, want ridepartner and chatpartner", got)
	}
	if got["stranger"] || got["me"] {
		t.Errorf("contacts = %v, must not include offer-only partners or self", got)
	}
}

func TestFetchMessagesOrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	a := createTestUser(t, s, "a", false)
	b := createTestUser(t, s, "b", false)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		msg := &models.Message{
			SenderID: a.ID, ReceiverID: b.ID,
			Body:   string(rune('0' + i)),
			SentAt: base.Add(time.Duration(i) * time.Minute),
		}
		if i%2 == 1 {
			msg.SenderID, msg.ReceiverID = b.ID, a.ID
		}
		if err := s.SaveMessage(msg); err != nil {
			t.Fatalf("SaveMessage: %v", err)
		}
	}

	msgs, err := s.FetchMessages(a.ID, b.ID, 3)
	if err != nil {
		t.Fatalf("FetchMessages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	// Last 3 messages, oldest of them first.
	if msgs[0].Body != "2" || msgs[2].Body != "4" {
		t.Errorf("order = [%s %s %s], want [2 3 4]", msgs[0].Body, msgs[1].Body, msgs[2].Body)
	}
}

func TestSetUserRole(t *testing.T) {
	s := newTestStore(t)
	u := createTestUser(t, s, "maya", false)

	minRating := 3
	if err := s.SetUserRole(u.ID, true, "Ashrafieh", &minRating); err != nil {
		t.Fatalf("SetUserRole: %v", err)
	}
	got, err := s.GetUserByID(u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if !got.IsDriver || got.Area != "Ashrafieh" || got.MinRating != 3 || !got.RoleSelected {
		t.Errorf("user after SetUserRole = %+v", got)
	}

	if err := s.SetUserRole(9999, false, "", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user err = %v, want ErrNotFound", err)
	}
}
