package redis

import (
	"bidding-app/internal/domain"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const catalogIDsKey = "catalog:ids"

func productKey(productID int) string {
	return fmt.Sprintf("product:%d", productID)
}

var compareAndSetScript = redis.NewScript(`
	local product_key = KEYS[1]
	if redis.call('EXISTS', product_key) == 0 then
		return -1
	end

	local current = redis.call('HGET', product_key, 'current_bid')
	if current ~= ARGV[1] then
		return 0
	end

	redis.call('HSET', product_key,
		'current_bid', ARGV[2],
		'last_updated', ARGV[3])
	return 1
`)

// CatalogStore keeps products as hashes and their display order in a list.
type CatalogStore struct {
	client *redis.Client
}

func NewCatalogStore(client *redis.Client) *CatalogStore {
	return &CatalogStore{client: client}
}

const maxSeedAttempts = 3

// Seed writes products only when the catalog is empty, so restarts keep the
// bids already placed. The empty check and the write run under WATCH, so
// servers starting together seed once.
func (r *CatalogStore) Seed(ctx context.Context, products []domain.Product) error {
	products = uniqueProducts(products)

	seed := func(tx *redis.Tx) error {
		count, err := tx.LLen(ctx, catalogIDsKey).Result()
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, p := range products {
				pipe.HSet(ctx, productKey(p.ID),
					"id", p.ID,
					"title", p.Title,
					"current_bid", p.CurrentBid,
					"last_updated", time.Now().Unix(),
				)
				pipe.RPush(ctx, catalogIDsKey, p.ID)
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxSeedAttempts; attempt++ {
		err := r.client.Watch(ctx, seed, catalogIDsKey)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		// Another writer touched the list; the next check sees its seed.
	}
	return fmt.Errorf("seed catalog: %w", redis.TxFailedErr)
}

// uniqueProducts keeps the first entry for each product ID, in order.
func uniqueProducts(products []domain.Product) []domain.Product {
	seen := make(map[int]struct{}, len(products))
	unique := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		unique = append(unique, p)
	}
	return unique
}

func (r *CatalogStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	ids, err := r.client.LRange(ctx, catalogIDsKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.SliceCmd, 0, len(ids))
	for _, id := range ids {
		cmds = append(cmds, pipe.HMGet(ctx, "product:"+id, "id", "title", "current_bid"))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	products := make([]domain.Product, 0, len(cmds))
	for _, cmd := range cmds {
		product, err := productFromFields(cmd.Val())
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				continue
			}
			return nil, err
		}
		products = append(products, *product)
	}
	return products, nil
}

func (r *CatalogStore) GetProduct(ctx context.Context, productID int) (*domain.Product, error) {
	result, err := r.client.HMGet(ctx, productKey(productID), "id", "title", "current_bid").Result()
	if err != nil {
		return nil, err
	}
	return productFromFields(result)
}

func (r *CatalogStore) CompareAndSetBid(ctx context.Context, productID int, expected, next string) (bool, error) {
	result, err := compareAndSetScript.Run(ctx, r.client, []string{productKey(productID)},
		expected,
		next,
		strconv.FormatInt(time.Now().Unix(), 10)).Int()
	if err != nil {
		return false, err
	}

	switch result {
	case -1:
		return false, domain.ErrProductNotFound
	case 1:
		return true, nil
	default:
		return false, nil
	}
}

func productFromFields(fields []interface{}) (*domain.Product, error) {
	if len(fields) < 3 || fields[0] == nil {
		return nil, domain.ErrProductNotFound
	}

	idStr, _ := fields[0].(string)
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt product id %q: %w", idStr, err)
	}

	product := &domain.Product{ID: id}
	if title, ok := fields[1].(string); ok {
		product.Title = title
	}
	if bid, ok := fields[2].(string); ok {
		product.CurrentBid = bid
	}
	return product, nil
}
