// Package channelmap loads the SKU to channel mapping from a YAML file.
package channelmap

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"offer-relay/internal/domain/channel"
	"offer-relay/internal/usecase/shared"

	"github.com/bwmarrin/snowflake"
	"gopkg.in/yaml.v3"
)

// File is the on-disk layout:
//
//	channels:
//	  - sku: AB-12
//	    channel_id: "123456789012345678"
type File struct {
	Channels []Row `yaml:"channels"`
}

type Row struct {
	SKU       string `yaml:"sku"`
	ChannelID string `yaml:"channel_id"`
}

// YAMLDirectory re-reads its file on every Load so edits apply on the next cycle.
type YAMLDirectory struct {
	path   string
	logger *slog.Logger
}

var _ shared.ChannelDirectory = (*YAMLDirectory)(nil)

func NewYAMLDirectory(path string, logger *slog.Logger) *YAMLDirectory {
	return &YAMLDirectory{path: path, logger: logger}
}

func (d *YAMLDirectory) Load(_ context.Context) (channel.Mapping, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return channel.Mapping{}, fmt.Errorf("failed to read channel map: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return channel.Mapping{}, err
	}
	return channel.NewMapping(d.entries(f)), nil
}

func Parse(data []byte) (File, error) {
	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return File{}, fmt.Errorf("failed to parse channel map: %w", err)
	}
	return f, nil
}

// entries drops rows with a blank SKU or a channel ID that is not a snowflake.
func (d *YAMLDirectory) entries(f File) []channel.Entry {
	out := make([]channel.Entry, 0, len(f.Channels))
	for i, row := range f.Channels {
		sku := strings.TrimSpace(row.SKU)
		if channel.NormalizeSKU(sku) == "" {
			d.logger.Warn("skipping channel map row without sku", "row", i+1)
			continue
		}
		id, err := snowflake.ParseString(strings.TrimSpace(row.ChannelID))
		if err != nil || id <= 0 {
			d.logger.Warn("skipping channel map row with invalid channel id",
				"row", i+1,
				"sku", sku,
				"channel_id", row.ChannelID)
			continue
		}
		out = append(out, channel.Entry{SKU: sku, ChannelID: id.String()})
	}
	return out
}
