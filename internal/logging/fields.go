package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供站点/域名/编译器/命中状态字段，供渲染请求日志复用。
func RequestFields(site, domain, compilerKey string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"site":      site,
		"domain":    domain,
		"compiler":  compilerKey,
		"cache_hit": cacheHit,
	}
}
