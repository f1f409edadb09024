package entities

import (
	"errors"
	"time"
)

// Device is one voice unit in a household: the speaker/display that
// streams energy frames up and plays prompts and alerts back.
type Device struct {
	ID           string    `json:"id" bson:"_id"`
	SerialNumber string    `json:"serial_number" bson:"serial_number"`
	SecretKey    string    `json:"-" bson:"secret_key"`
	Model        string    `json:"model" bson:"model"`
	HouseholdID  string    `json:"household_id,omitempty" bson:"household_id,omitempty"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// Validate checks the fields a device needs before registration.
func (d *Device) Validate() error {
	if d.SerialNumber == "" {
		return errors.New("serial number is required")
	}
	if d.SecretKey == "" {
		return errors.New("secret key is required")
	}
	if d.Model == "" {
		return errors.New("model is required")
	}
	return nil
}
