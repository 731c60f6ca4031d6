// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - Pool: layout e estado das mesas, sem sincronização própria
//   - Allocator: lock único, filas de espera por classe e entrega de mesas
//   - MemoryStatsStore / RedisStatsStore: estatísticas do salão
//   - Door: semáforo simples para o limite de grupos dentro do restaurante
package infra
