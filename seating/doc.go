// Package seating monta o salão: allocator, porta de entrada, estatísticas e
// serviço de aplicação, e conduz a visita de um grupo de clientes.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem locks nem goroutines)
//   - application: casos de uso (sentar/liberar com timeout e estatísticas)
//   - infra: implementações concretas (pool, allocator, stats, porta)
//   - seating (este pacote): wiring + ciclo de visita de um grupo
//
// Fluxo de uma visita:
//
//  1. Entra pela porta (limite de grupos ativos)
//  2. Pede mesa à camada application e espera
//  3. Ocupa a mesa enquanto o colaborador externo (refeição) roda
//  4. Libera a mesa e sai pela porta
package seating
