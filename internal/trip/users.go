package trip

import "time"

type User struct {
	ID          string                  `json:"id"`
	Email       string                  `json:"email"`
	Password    string                  `json:"-"` // bcrypt hash, never serialized
	FirstName   string                  `json:"firstName"`
	LastName    string                  `json:"lastName"`
	Phone       string                  `json:"phone,omitempty"`
	Role        Role                    `json:"role"`
	IsActive    bool                    `json:"isActive"`
	Rating      RatingAggregate         `json:"rating"`
	Preferences NotificationPreferences `json:"preferences"`
	CreatedAt   time.Time               `json:"createdAt"`
}

type NotificationPreferences struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
	SMS   bool `json:"sms"`
}

type Vehicle struct {
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
	LicensePlate string `json:"licensePlate"`
	Color        string `json:"color"`
	ImageURL     string `json:"imageUrl,omitempty"`
}

type Driver struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	LicenseNumber  string    `json:"licenseNumber"`
	Vehicle        Vehicle   `json:"vehicle"`
	IsVerified     bool      `json:"isVerified"`
	RidesCompleted int       `json:"ridesCompleted"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type NotificationType string

const (
	NotifyRideBooked         NotificationType = "ride_booked"
	NotifyRideCancelled      NotificationType = "ride_cancelled"
	NotifyRideConfirmed      NotificationType = "ride_confirmed"
	NotifyRideStarted        NotificationType = "ride_started"
	NotifyRideCompleted      NotificationType = "ride_completed"
	NotifyPaymentReceived    NotificationType = "payment_received"
	NotifyDriverVerified     NotificationType = "driver_verified"
	NotifyRatingReceived     NotificationType = "rating_received"
	NotifySystemAnnouncement NotificationType = "system_announcement"
	NotifyRideReminder       NotificationType = "ride_reminder"
)

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityMedium NotificationPriority = "medium"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

type Notification struct {
	ID          string               `json:"id"`
	RecipientID string               `json:"recipientId"`
	SenderID    string               `json:"senderId,omitempty"`
	Type        NotificationType     `json:"type"`
	Title       string               `json:"title"`
	Message     string               `json:"message"`
	Data        map[string]any       `json:"data,omitempty"`
	IsRead      bool                 `json:"isRead"`
	Priority    NotificationPriority `json:"priority"`
	CreatedAt   time.Time            `json:"createdAt"`
}
