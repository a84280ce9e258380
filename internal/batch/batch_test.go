package batch

import "testing"

func TestParseDirName(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Batch
		wantErr bool
	}{
		{name: "conventional", in: "B400022028241-RT1", want: Batch{ID: "400022028241", RoundTripNumber: 1}},
		{name: "multi digit round trip", in: "B1-RT12", want: Batch{ID: "1", RoundTripNumber: 12}},
		{name: "missing prefix", in: "400022028241-RT1", wantErr: true},
		{name: "missing round trip", in: "B400022028241", wantErr: true},
		{name: "round trip zero", in: "B400022028241-RT0", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDirName(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDirName(%q) want error, got %+v", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDirName(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("ParseDirName(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFullIDRoundTrips(t *testing.T) {
	b := Batch{ID: "400022028241", RoundTripNumber: 1}
	if got := b.FullID(); got != "B400022028241-RT1" {
		t.Fatalf("FullID() = %q", got)
	}
	parsed, err := FromPath("/data/batches/" + b.FullID() + "/")
	if err != nil {
		t.Fatalf("FromPath error: %v", err)
	}
	if parsed != b {
		t.Fatalf("FromPath = %+v, want %+v", parsed, b)
	}
}
