// Package bot - прикладной бот для командного чата Rust+ поверх rpclient и
// bmapi. Бот:
//   - слушает broadcast-сообщения и чат-команды (!help, !bt*, !strobe,
//     !alarm*, !track*, !death*, !save);
//   - управляет smart-switch'ами и реагирует на smart-alarm'ы;
//   - запускает death-watch (опрос getTeamInfo, смерть персонажа);
//   - через BattleMetrics сообщает о входе/выходе отслеживаемых игроков;
//   - переподключается с backoff 1s..30s после любого разрыва;
//   - при прямом подключении держит app-heartbeat (см. EnableHeartbeat);
//   - хранит конфиг в JSON и перечитывает его при правке файла.
//
// Пример:
//
//	rp := rpclient.NewFromConfig(rpcfg, rpclient.WithLogger(logger))
//	b := bot.New(logger)
//	b.SetRustPlusClient(rp)
//	b.SetBattleMetrics(bmapi.NewClientFromConf(bmcfg)) // необязательно
//	if !rpcfg.UseProxy {
//	    b.EnableHeartbeat()
//	}
//	_ = b.UseConfig("conf/botconfig.json")
//
//	if err := b.Start(ctx); err != nil { return err }
//	defer b.Stop()
//	<-ctx.Done()
package bot
