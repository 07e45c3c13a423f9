// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package app

import (
	"errors"
	"io/fs"

	"github.com/subosito/gotenv"

	"image-inference/internal/dispatch"
	"image-inference/internal/model"
	"image-inference/pkg/config"
	pkgerrors "image-inference/pkg/errors"
	"image-inference/pkg/log"
	"image-inference/pkg/secrets"
)

// Bootstrap 统一初始化：供 api 与 cli 复用
type Bootstrap struct {
	Config     *config.Config
	Logger     *log.Logger
	Secrets    secrets.Store
	Registry   *model.Registry
	Limiter    *dispatch.Limiter // 未配置限流时为 nil
	Dispatcher *dispatch.Dispatcher
}

// LoadEnv 加载 .env 文件（不覆盖已有环境变量）；文件不存在时忽略
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := gotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return pkgerrors.Wrapf(err, "加载 %s 失败", p)
		}
	}
	return nil
}

// NewBootstrap 根据配置创建 Bootstrap（Logger/Secrets/Registry/Dispatcher）
func NewBootstrap(cfg *config.Config) (*Bootstrap, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger, err := log.NewLogger(&cfg.Log)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "初始化日志失败")
	}

	store, err := secrets.NewStore(cfg.Secrets)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "初始化 secret store 失败")
	}

	registry := model.DefaultRegistry()
	if cfg.Model.Vision.Default != "" {
		if _, err := registry.Lookup(cfg.Model.Vision.Default); err != nil {
			return nil, pkgerrors.Wrapf(err, "model.vision.default %q", cfg.Model.Vision.Default)
		}
	}

	limiter := NewLimiter(cfg)
	d := dispatch.New(registry, NewTransportFactory(cfg, store),
		dispatch.WithLogger(logger),
		dispatch.WithLimiter(limiter),
	)

	return &Bootstrap{
		Config:     cfg,
		Logger:     logger,
		Secrets:    store,
		Registry:   registry,
		Limiter:    limiter,
		Dispatcher: d,
	}, nil
}
