package repository

import (
	"context"

	"github.com/akinalp/chatkit/models"
)

// QueryChannelsRepository, kanal-listesi sorgu cache'i için interface.
//
// Her (filter, sort) ikilisi bir spec satırıdır; cids kolonu o sorgunun
// son bilinen sıralı sonucunu taşır. Offline açılışta kanal listesi bu
// cache'ten, network'e dokunmadan gösterilir.
type QueryChannelsRepository interface {
	Upsert(ctx context.Context, spec *models.QueryChannelsSpec) error
	GetByKey(ctx context.Context, key string) (*models.QueryChannelsSpec, error)
}
