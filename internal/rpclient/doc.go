// Package rpclient реализует WebSocket-клиент Rust+ (Facepunch Companion).
// Клиент подключается напрямую к серверу (ws://ip:port) либо через
// прокси Facepunch (wss://companion-rust.facepunch.com/game/...), отправляет
// AppRequest и получает AppMessage (protobuf) по одному соединению.
//
// Каждому запросу присваивается seq (с 1, свой счётчик у каждого клиента).
// Ответ сопоставляется с запросом только по seq, порядок прихода ответов
// не важен. Сообщения без совпавшего seq (чат команды, смена сущностей и
// ответы на запросы без колбэка) приходят как MessageEvent с Matched == false.
//
// Два стиля завершения:
//   - SendRequest(req, cb) - колбэк вызывается ровно один раз;
//   - SendRequestAsync(req, timeout) - Future, который разрешается ответом,
//     ErrTimeout, *ServerError или *ConnectionClosedError.
//
// При разрыве все ожидающие запросы завершаются ошибкой. Автоматического
// реконнекта нет: это политика приложения (см. internal/bot).
//
// События (On - синхронно, Subscribe - через канал):
//   - ConnectingEvent, ConnectedEvent, DisconnectedEvent, ErrorEvent,
//     RequestEvent, MessageEvent.
//
// Пример:
//
//	rp := rpclient.New("1.2.3.4", 28082, playerID, playerToken, false,
//	    rpclient.WithLogger(logger))
//	if err := rp.ConnectAndWait(ctx); err != nil { log.Fatal(err) }
//	defer rp.Disconnect()
//
//	// Включить умный свитч:
//	_ = rp.TurnSmartSwitchOn(559662, nil)
//
//	// Прочитать состояние устройства:
//	resp, err := rp.Await(ctx, &rpclient.AppRequest{
//	    EntityID:      559662,
//	    GetEntityInfo: &rpclient.AppEmpty{},
//	})
package rpclient
