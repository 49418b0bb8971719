package models

import "testing"

func TestCreateChannelRequestValidate(t *testing.T) {
	cases := []struct {
		name    string
		req     CreateChannelRequest
		wantErr bool
	}{
		{"valid text", CreateChannelRequest{Name: "general", Type: "text"}, false},
		{"valid voice uppercased", CreateChannelRequest{Name: "voice-lounge", Type: "VOICE"}, false},
		{"empty name", CreateChannelRequest{Name: "", Type: "TEXT"}, true},
		{"bad char", CreateChannelRequest{Name: "general!", Type: "TEXT"}, true},
		{"bad type", CreateChannelRequest{Name: "general", Type: "AUDIO"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestCreateChannelRequestValidateNormalizesCase(t *testing.T) {
	r := CreateChannelRequest{Name: "General", Type: "text"}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
	if r.Name != "general" {
		t.Errorf("Name = %q, want lowercased %q", r.Name, "general")
	}
	if r.Type != string(ChannelTypeText) {
		t.Errorf("Type = %q, want %q", r.Type, ChannelTypeText)
	}
}

func TestUpdateChannelRequestValidateRejectsNegativePosition(t *testing.T) {
	pos := -1
	r := UpdateChannelRequest{Position: &pos}
	if err := r.Validate(); err == nil {
		t.Error("expected error for negative position")
	}
}

func TestUpdateChannelRequestValidateNilFieldsAreNoop(t *testing.T) {
	r := UpdateChannelRequest{}
	if err := r.Validate(); err != nil {
		t.Errorf("Validate() with no fields set should not error, got %v", err)
	}
}
