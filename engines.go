package levelkv

import (
	_ "github.com/kezhuw/levelkv/internal/engine/goleveldb"
	_ "github.com/kezhuw/levelkv/internal/engine/memdb"
	_ "github.com/kezhuw/levelkv/internal/engine/pebble"
)
